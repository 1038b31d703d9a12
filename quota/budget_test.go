package quota

import (
	"errors"
	"sync"
	"testing"
)

func TestBudgetAcquireToLimit(t *testing.T) {
	b := NewBudget(3)
	for i := 0; i < 3; i++ {
		if err := b.Acquire(); err != nil {
			t.Fatalf("acquire %d: unexpected error: %v", i+1, err)
		}
	}

	err := b.Acquire()
	if !errors.Is(err, ErrExceeded) {
		t.Fatalf("fourth acquire: err = %v, want ErrExceeded", err)
	}
	// A rejected acquisition must not move the counter.
	if b.Used() != 3 {
		t.Errorf("used = %d, want 3", b.Used())
	}
	if b.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", b.Remaining())
	}
}

func TestBudgetZeroMax(t *testing.T) {
	b := NewBudget(0)
	if err := b.Acquire(); !errors.Is(err, ErrExceeded) {
		t.Errorf("err = %v, want ErrExceeded", err)
	}
	if b := NewBudget(-5); b.Max() != 0 {
		t.Errorf("negative max normalized to %d, want 0", b.Max())
	}
}

func TestBudgetConcurrentAcquire(t *testing.T) {
	const max = 250
	b := NewBudget(max)

	var wg sync.WaitGroup
	var granted sync.Map
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			n := 0
			for i := 0; i < 100; i++ {
				if b.Acquire() == nil {
					n++
				}
			}
			granted.Store(g, n)
		}(g)
	}
	wg.Wait()

	total := 0
	granted.Range(func(_, v any) bool {
		total += v.(int)
		return true
	})
	if total != max {
		t.Errorf("granted %d acquisitions, want exactly %d", total, max)
	}
	if b.Used() != max {
		t.Errorf("used = %d, want %d", b.Used(), max)
	}
}
