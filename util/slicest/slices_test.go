package slicest

import "testing"

func TestMap(t *testing.T) {
	got := Map([]int{1, 2, 3}, func(i int) int { return i * 2 })
	if len(got) != 3 || got[0] != 2 || got[2] != 6 {
		t.Fatalf("Map = %v", got)
	}
}

func TestFilter(t *testing.T) {
	got := Filter([]int{1, 2, 3, 4}, func(i int) bool { return i%2 == 0 })
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Fatalf("Filter = %v", got)
	}
}
