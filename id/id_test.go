package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/escrow/id"
)

func TestPrefixRoundTrip(t *testing.T) {
	for _, p := range []id.Prefix{id.PrefixEvent, id.PrefixPayment, id.PrefixCrankRun} {
		t.Run(string(p), func(t *testing.T) {
			i := p.New()
			if !strings.HasPrefix(i.String(), string(p)+"_") {
				t.Fatalf("got %q, want prefix %q", i, p)
			}
			back, err := p.Parse(i.String())
			if err != nil {
				t.Fatal(err)
			}
			if back.String() != i.String() {
				t.Errorf("round trip: got %q, want %q", back, i)
			}
		})
	}
}

func TestPrefixParseRejectsOtherTypes(t *testing.T) {
	if _, err := id.PrefixPayment.Parse(id.NewEventID().String()); err == nil {
		t.Error("payment prefix accepted an event id")
	}
	if _, err := id.PrefixEvent.Parse(id.NewCrankRunID().String()); err == nil {
		t.Error("event prefix accepted a crank run id")
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "pay", "pay_!!", "PAY_01h2xcejqtf2nbrexx3vqjhp41"} {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("parsed %q", s)
		}
	}
}

func TestZeroID(t *testing.T) {
	var i id.ID
	if !i.IsNil() || i.String() != "" || i.Prefix() != "" {
		t.Errorf("zero id not empty: %q", i)
	}

	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("Value: got %v, %v", v, err)
	}

	var back id.ID
	if err := back.UnmarshalText(nil); err != nil || !back.IsNil() {
		t.Errorf("UnmarshalText(nil): got %q, %v", back, err)
	}
}

func TestScan(t *testing.T) {
	want := id.NewPaymentID()
	v, err := want.Value()
	if err != nil {
		t.Fatal(err)
	}

	for _, src := range []any{v, []byte(want.String())} {
		var got id.ID
		if err := got.Scan(src); err != nil {
			t.Fatalf("Scan(%T): %v", src, err)
		}
		if got.String() != want.String() {
			t.Errorf("Scan(%T): got %q, want %q", src, got, want)
		}
	}

	var got id.ID
	if err := got.Scan(42); err == nil {
		t.Error("scanned an int")
	}
}

func TestUnique(t *testing.T) {
	if a, b := id.NewEventID(), id.NewEventID(); a.String() == b.String() {
		t.Errorf("duplicate id %q", a)
	}
}

func TestTypedAliases(t *testing.T) {
	var ev id.EventID = id.NewEventID()
	var pay id.PaymentID = id.NewPaymentID()
	var run id.CrankRunID = id.NewCrankRunID()

	for _, tt := range []struct {
		got  id.ID
		want id.Prefix
	}{
		{ev, id.PrefixEvent},
		{pay, id.PrefixPayment},
		{run, id.PrefixCrankRun},
	} {
		if tt.got.Prefix() != tt.want {
			t.Errorf("got prefix %q, want %q", tt.got.Prefix(), tt.want)
		}
	}
}
