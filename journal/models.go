// Package journal is the append-only log of events emitted by committed calls.
package journal

import (
	"encoding/json"

	"github.com/xraph/escrow/id"
)

// Entry is one emitted event. Seq is dense and starts at 1; Payload holds the
// event fields as JSON.
type Entry struct {
	ID        id.EventID      `json:"id"`
	Seq       uint64          `json:"seq"`
	Name      string          `json:"name"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp uint64          `json:"timestamp"`
}
