package types

import "time"

// Entity holds wall-clock bookkeeping for stored records. Escrow rules run on
// host time and never read these fields.
type Entity struct {
	CreatedAt time.Time `json:"created_at" bun:"created_at,notnull"`
	UpdatedAt time.Time `json:"updated_at" bun:"updated_at,notnull"`
}

// NewEntity stamps both fields with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch restamps UpdatedAt.
func (e *Entity) Touch() { e.UpdatedAt = time.Now().UTC() }
