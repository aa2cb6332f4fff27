package idgen

import (
	"sort"
	"strings"
	"testing"
	"time"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if len(id) != 36 {
		t.Fatalf("expected length 36, got %d in %q", len(id), id)
	}
	if parts := strings.Split(id, "-"); len(parts) != 5 {
		t.Fatalf("expected 5 parts, got %d in %q", len(parts), id)
	}
}

func TestUUIDv7_Uniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := gen()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

// WHAT: ids generated over time sort in generation order.
// WHY: the journal orders by these ids when timestamps collide.
func TestUUIDv7_TimeSortable(t *testing.T) {
	gen := UUIDv7()
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, gen())
		time.Sleep(2 * time.Millisecond)
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("ids not time-sorted: %v", ids)
	}
}

func TestNew_UsesDefault(t *testing.T) {
	if id := New(); len(id) != 36 {
		t.Fatalf("New() = %q, want UUID", id)
	}
}
