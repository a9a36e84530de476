package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() (Amount, error)
		expected Amount
		err      error
	}{
		{"Add", func() (Amount, error) { return NewAmount(100).Add(NewAmount(200)) }, NewAmount(300), nil},
		{"Sub", func() (Amount, error) { return NewAmount(500).Sub(NewAmount(200)) }, NewAmount(300), nil},
		{"Sub to zero", func() (Amount, error) { return NewAmount(7).Sub(NewAmount(7)) }, NewAmount(0), nil},
		{"Sub underflow", func() (Amount, error) { return NewAmount(1).Sub(NewAmount(2)) }, Amount{}, ErrAmountUnderflow},
		{"Add overflow", func() (Amount, error) { return MaxAmount().Add(NewAmount(1)) }, Amount{}, ErrAmountOverflow},
		{"MulDiv", func() (Amount, error) { return NewAmount(1000).MulDiv(250, 10000) }, NewAmount(25), nil},
		{"MulDiv truncates", func() (Amount, error) { return NewAmount(3).MulDiv(250, 10000) }, NewAmount(0), nil},
		{"MulDiv 39", func() (Amount, error) { return NewAmount(39).MulDiv(250, 10000) }, NewAmount(0), nil},
		{"MulDiv 40", func() (Amount, error) { return NewAmount(40).MulDiv(250, 10000) }, NewAmount(1), nil},
		{"MulDiv overflow", func() (Amount, error) { return MaxAmount().MulDiv(2, 1) }, Amount{}, ErrAmountOverflow},
		{"MulDiv by zero", func() (Amount, error) { return NewAmount(1).MulDiv(1, 0) }, Amount{}, ErrDivisionByZero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if !errors.Is(err, tt.err) {
				t.Fatalf("error: got %v, want %v", err, tt.err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestAmountComparison(t *testing.T) {
	small, large := NewAmount(1), NewAmount(2)

	if !small.LessThan(large) {
		t.Error("expected 1 < 2")
	}
	if !large.GreaterThan(small) {
		t.Error("expected 2 > 1")
	}
	if small.Cmp(small) != 0 {
		t.Error("expected 1 == 1")
	}
	if !(Amount{}).IsZero() {
		t.Error("zero value should be zero")
	}
	if !small.IsPositive() {
		t.Error("expected 1 to be positive")
	}
}

func TestAmountParse(t *testing.T) {
	max := "115792089237316195423570985008687907853269984665640564039457584007913129639935"

	a, err := ParseAmount(max)
	if err != nil {
		t.Fatalf("parse max: %v", err)
	}
	if !a.Equal(MaxAmount()) {
		t.Errorf("got %s, want max", a)
	}
	if a.String() != max {
		t.Errorf("String: got %s, want %s", a.String(), max)
	}

	for _, bad := range []string{"", "-1", "abc", "1.5", max + "0"} {
		if _, err := ParseAmount(bad); err == nil {
			t.Errorf("expected error parsing %q", bad)
		}
	}
}

func TestAmountJSON(t *testing.T) {
	type wrapper struct {
		Amount Amount `json:"amount"`
	}

	data, err := json.Marshal(wrapper{Amount: NewAmount(975)})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"amount":"975"}` {
		t.Errorf("marshal: got %s", data)
	}

	var w wrapper
	if err := json.Unmarshal(data, &w); err != nil {
		t.Fatal(err)
	}
	if !w.Amount.Equal(NewAmount(975)) {
		t.Errorf("unmarshal: got %s", w.Amount)
	}
}

func TestAmountScan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    Amount
		wantErr bool
	}{
		{"string", "42", NewAmount(42), false},
		{"bytes", []byte("42"), NewAmount(42), false},
		{"int64", int64(42), NewAmount(42), false},
		{"nil", nil, Amount{}, false},
		{"negative", int64(-1), Amount{}, true},
		{"float", 1.5, Amount{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			err := a.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !a.Equal(tt.want) {
				t.Errorf("got %s, want %s", a, tt.want)
			}
		})
	}
}

func TestSum(t *testing.T) {
	total, err := Sum(NewAmount(1), NewAmount(2), NewAmount(3))
	if err != nil {
		t.Fatal(err)
	}
	if !total.Equal(NewAmount(6)) {
		t.Errorf("got %s, want 6", total)
	}

	if _, err := Sum(MaxAmount(), NewAmount(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("0x00000000000000000000000000000000000000AA")
	if err != nil {
		t.Fatal(err)
	}
	if IsZeroAddress(a) {
		t.Error("expected non-zero address")
	}
	if !IsZeroAddress(ZeroAddress) {
		t.Error("expected zero address")
	}
	if _, err := ParseAddress("0x1234"); err == nil {
		t.Error("expected error for short address")
	}
}
