package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to report IsEmpty")
	}
	if ID("abc").IsEmpty() {
		t.Error("Expected non-empty ID to not report IsEmpty")
	}
}

func TestParseAnalysisID(t *testing.T) {
	id := NewAnalysisID()
	parsed, err := ParseAnalysisID("  " + id.String() + " ")
	if err != nil {
		t.Fatalf("parse generated id: %v", err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	for _, bad := range []string{"", "   ", "not-a-uuid"} {
		if _, err := ParseAnalysisID(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
