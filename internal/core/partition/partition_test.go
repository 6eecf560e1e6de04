package partition

import (
	"strconv"
	"sync"
	"testing"
)

func TestFor_Determinism(t *testing.T) {
	// Same input must always produce the same partition.
	id := For("P1|morning|2026-10-12")
	for i := 0; i < 100; i++ {
		if got := For("P1|morning|2026-10-12"); got != id {
			t.Fatalf("For() = %d on iteration %d, want %d", got, i, id)
		}
	}
}

func TestFor_Range(t *testing.T) {
	// All outputs must be in [0, Count).
	inputs := []string{"", "a", "P1|morning", "P2|evening", "very-long-producer-id-that-should-still-hash-correctly"}
	for _, s := range inputs {
		p := For(s)
		if p < 0 || p >= Count {
			t.Errorf("For(%q) = %d, want [0, %d)", s, p, Count)
		}
	}
}

func TestFor_Distribution(t *testing.T) {
	// 1 000 producers should hit at least 100 distinct partitions.
	seen := make(map[int]struct{})
	for i := 0; i < 1000; i++ {
		seen[For("producer-"+strconv.Itoa(i))] = struct{}{}
	}
	if len(seen) < 100 {
		t.Errorf("only %d distinct partitions from 1000 inputs, want >= 100", len(seen))
	}
}

func TestLocks_SerializesSameKey(t *testing.T) {
	var locks Locks
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("P1|morning|2026-10-12")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}
