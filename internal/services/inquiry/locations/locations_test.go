package locations

import (
	"slices"
	"testing"
)

func TestStatesSortedAndComplete(t *testing.T) {
	states := States()
	if len(states) != 37 {
		t.Fatalf("states = %d, want 36 states plus FCT", len(states))
	}
	if !slices.IsSorted(states) {
		t.Fatalf("states not sorted: %v", states)
	}
	if states[0] != "Abia" || states[len(states)-1] != "Zamfara" {
		t.Fatalf("first/last = %s/%s", states[0], states[len(states)-1])
	}
}

func TestCities(t *testing.T) {
	lagos := Cities("Lagos")
	if !slices.Contains(lagos, "Ikeja") || len(lagos) != 10 {
		t.Fatalf("lagos = %v", lagos)
	}
	lagos[0] = "changed"
	if Cities("Lagos")[0] != "Ikeja" {
		t.Fatal("Cities returned shared storage")
	}
	if Cities("Atlantis") != nil {
		t.Fatal("unknown state should have no cities")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		state, city string
		want        bool
	}{
		{"Oyo", "Ibadan", true},
		{"oyo", " ibadan ", true},
		{"FCT", "", true},
		{"Oyo", "Ikeja", false},
		{"", "", false},
		{"Atlantis", "", false},
	}
	for _, tc := range tests {
		if got := Valid(tc.state, tc.city); got != tc.want {
			t.Errorf("Valid(%q, %q) = %v, want %v", tc.state, tc.city, got, tc.want)
		}
	}
	if name, ok := Canonical("akwa ibom"); !ok || name != "Akwa Ibom" {
		t.Fatalf("Canonical = %q, %v", name, ok)
	}
}
