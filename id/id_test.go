package id

import (
	"strings"
	"testing"
)

func TestNewLedgerEntryID(t *testing.T) {
	got := NewLedgerEntryID().String()

	if !strings.HasPrefix(got, string(PrefixLedgerEntry)+"_") {
		t.Errorf("ID %s does not have prefix %s", got, PrefixLedgerEntry)
	}

	parts := strings.Split(got, "_")
	if len(parts) != 2 {
		t.Errorf("ID %s does not have correct format", got)
	}
	if len(parts[1]) != 26 {
		t.Errorf("ID suffix %s does not have correct length (got %d, want 26)", parts[1], len(parts[1]))
	}
}

func TestParseLedgerEntryID(t *testing.T) {
	valid := "lgr_01h2xcejqtf2nbrexx3vqjhp41"
	invalid := "lgr_invalid"
	wrongPrefix := "xyz_01h2xcejqtf2nbrexx3vqjhp41"

	if _, err := ParseLedgerEntryID(valid); err != nil {
		t.Errorf("Failed to parse valid ID %s: %v", valid, err)
	}

	if _, err := ParseLedgerEntryID(invalid); err == nil {
		t.Errorf("Expected error parsing invalid ID %s", invalid)
	}

	_, err := ParseLedgerEntryID(wrongPrefix)
	if err == nil {
		t.Errorf("Expected error parsing ID with wrong prefix %s", wrongPrefix)
	}
	if err != nil && !strings.Contains(err.Error(), "expected prefix") {
		t.Errorf("Wrong error message for incorrect prefix: %v", err)
	}
}

func TestParseAny(t *testing.T) {
	valid := "lgr_01h2xcejqtf2nbrexx3vqjhp41"

	parsed, err := ParseAny(valid)
	if err != nil {
		t.Errorf("Failed to parse valid ID %s: %v", valid, err)
	}
	if parsed.String() != valid {
		t.Errorf("Parsed ID mismatch: got %s, want %s", parsed.String(), valid)
	}

	if _, err := ParseAny("invalid_id"); err == nil {
		t.Error("Expected error parsing invalid ID")
	}
}

func TestIDUniqueness(t *testing.T) {
	const count = 100
	ids := make(map[string]bool)

	for i := 0; i < count; i++ {
		id := NewLedgerEntryID().String()
		if ids[id] {
			t.Fatalf("Duplicate ID generated: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != count {
		t.Errorf("Expected %d unique IDs, got %d", count, len(ids))
	}
}

func TestIDSortability(t *testing.T) {
	id1 := NewLedgerEntryID()
	id2 := NewLedgerEntryID()
	id3 := NewLedgerEntryID()

	if id1.String() >= id2.String() {
		t.Logf("Warning: IDs may not be perfectly time-ordered: %s >= %s", id1, id2)
	}
	if id2.String() >= id3.String() {
		t.Logf("Warning: IDs may not be perfectly time-ordered: %s >= %s", id2, id3)
	}
}

func TestNilID(t *testing.T) {
	var zero ID
	if !zero.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if zero.String() != "" {
		t.Errorf("zero-value ID.String() = %q, want empty", zero.String())
	}
}

func BenchmarkNewLedgerEntryID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewLedgerEntryID()
	}
}

func BenchmarkParseLedgerEntryID(b *testing.B) {
	id := "lgr_01h2xcejqtf2nbrexx3vqjhp41"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ParseLedgerEntryID(id)
	}
}
