// Package id defines TypeID-based identifiers for Escrow side records.
//
// Plans and subscriptions keep the dense numeric ids the escrow assigns.
// Journal entries, payment receipts and crank runs live beside the protocol
// state and carry a K-sortable "prefix_suffix" TypeID instead.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names a record type. It is the part of an ID before the underscore.
type Prefix string

const (
	PrefixEvent    Prefix = "evt"
	PrefixPayment  Prefix = "pay"
	PrefixCrankRun Prefix = "crank"
)

// New generates a fresh ID with prefix p. It panics if p is not a valid
// TypeID prefix, which only happens for a programming error.
func (p Prefix) New() ID {
	tid, err := typeid.Generate(string(p))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", p, err))
	}
	return ID{tid: tid, ok: true}
}

// Parse parses s and requires its prefix to be p.
func (p Prefix) Parse(s string) (ID, error) {
	i, err := Parse(s)
	if err != nil {
		return ID{}, err
	}
	if got := i.Prefix(); got != p {
		return ID{}, fmt.Errorf("id: %q has prefix %q, want %q", s, got, p)
	}
	return i, nil
}

// ID is a parsed TypeID. The zero value means "no id" and is stored as NULL.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	tid typeid.TypeID
	ok  bool
}

// Parse parses any "prefix_suffix" string.
func Parse(s string) (ID, error) {
	if s == "" {
		return ID{}, fmt.Errorf("id: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, ok: true}, nil
}

// EventID identifies a journal entry (prefix "evt").
type EventID = ID

// PaymentID identifies a payment receipt (prefix "pay").
type PaymentID = ID

// CrankRunID identifies one crank run (prefix "crank").
type CrankRunID = ID

// NewEventID generates a journal entry id.
func NewEventID() EventID { return PrefixEvent.New() }

// NewPaymentID generates a payment receipt id.
func NewPaymentID() PaymentID { return PrefixPayment.New() }

// NewCrankRunID generates a crank run id.
func NewCrankRunID() CrankRunID { return PrefixCrankRun.New() }

func (i ID) String() string {
	if !i.ok {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the record type of i, or "" for the zero ID.
func (i ID) Prefix() Prefix {
	if !i.ok {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// IsNil reports whether i is the zero ID.
func (i ID) IsNil() bool { return !i.ok }

func (i ID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = ID{}
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer.
func (i ID) Value() (driver.Value, error) {
	if !i.ok {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = ID{}
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	}
	return fmt.Errorf("id: cannot scan %T", src)
}
