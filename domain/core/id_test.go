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
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestNewOwner tests user/project normalization
func TestNewOwner(t *testing.T) {
	tests := []struct {
		user, project string
		expected      Owner
		hasError      bool
	}{
		{"", "", Owner{DefaultUserID, DefaultProjectID}, false},
		{"u1", "", Owner{"u1", DefaultProjectID}, false},
		{" u1 ", "thesis", Owner{"u1", "thesis"}, false},
		{"../etc", "", Owner{}, true},
		{"u1", "..", Owner{}, true},
		{"u1", `a\b`, Owner{}, true},
	}

	for _, test := range tests {
		result, err := NewOwner(test.user, test.project)
		if test.hasError && err == nil {
			t.Errorf("Expected error for %q/%q, but got none", test.user, test.project)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for %q/%q: %v", test.user, test.project, err)
		}
		if result != test.expected {
			t.Errorf("Expected %v, got %v", test.expected, result)
		}
	}
}
