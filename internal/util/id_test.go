package util

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestIDGenerator_NewID(t *testing.T) {
	gen := NewIDGenerator()
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		id := gen.NewID()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true

		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("generated id %q is not a UUID: %v", id, err)
		}
		if parsed.Version() != 7 {
			t.Errorf("expected UUID version 7, got %d", parsed.Version())
		}
	}
}

func TestProvisionalIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"Provisional", NewProvisionalID(), true},
		{"Persisted", NewID(), false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProvisional(tt.id); got != tt.want {
				t.Errorf("IsProvisional(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}

	if IsValidID(NewProvisionalID()) {
		t.Error("provisional id should not parse as a persisted id")
	}
}

func TestParseID(t *testing.T) {
	upper := strings.ToUpper(NewID())

	got, err := ParseID(upper)
	if err != nil {
		t.Fatalf("ParseID(%q) returned error: %v", upper, err)
	}
	if got != strings.ToLower(upper) {
		t.Errorf("ParseID normalized to %q, want lower case", got)
	}

	if _, err := ParseID("not-a-uuid"); err == nil {
		t.Error("expected error for invalid id")
	}
}
