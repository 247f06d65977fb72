package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/tokenledger/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"LedgerID", id.NewLedgerID, "tok_"},
		{"EventID", id.NewEventID, "evt_"},
		{"AuditID", id.NewAuditID, "aud_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"LedgerID", id.NewLedgerID, id.ParseLedgerID},
		{"EventID", id.NewEventID, id.ParseEventID},
		{"AuditID", id.NewAuditID, id.ParseAuditID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseLedgerID rejects evt_", id.NewEventID().String(), id.ParseLedgerID},
		{"ParseEventID rejects aud_", id.NewAuditID().String(), id.ParseEventID},
		{"ParseAuditID rejects tok_", id.NewLedgerID().String(), id.ParseAuditID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-type parse of %q", tt.input)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "evt", "evt_!!!", "not an id"} {
		if _, err := id.Parse(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestTextAndSQLRoundTrip(t *testing.T) {
	original := id.NewEventID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var fromText id.ID
	if err := fromText.UnmarshalText(data); err != nil {
		t.Fatal(err)
	}
	if fromText.String() != original.String() {
		t.Errorf("text mismatch: %q != %q", fromText.String(), original.String())
	}

	val, err := original.Value()
	if err != nil {
		t.Fatal(err)
	}
	var fromSQL id.ID
	if err := fromSQL.Scan(val); err != nil {
		t.Fatal(err)
	}
	if fromSQL.String() != original.String() {
		t.Errorf("sql mismatch: %q != %q", fromSQL.String(), original.String())
	}

	var nilID id.ID
	if val, _ := nilID.Value(); val != nil {
		t.Errorf("expected NULL for nil ID, got %v", val)
	}
	if err := fromSQL.Scan(nil); err != nil || !fromSQL.IsNil() {
		t.Errorf("Scan(nil): %v, nil=%v", err, fromSQL.IsNil())
	}
	if err := fromSQL.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestSortable(t *testing.T) {
	a := id.NewEventID()
	b := id.NewEventID()
	if a.String() == b.String() {
		t.Fatalf("two consecutive IDs collided: %q", a.String())
	}
	if a.String() > b.String() {
		t.Errorf("expected %q to sort before %q", a.String(), b.String())
	}
}
