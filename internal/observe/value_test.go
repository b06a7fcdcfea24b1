package observe

import (
	"sync"
	"testing"
)

func TestValue_LoadStore(t *testing.T) {
	v := NewValue[int]()

	if _, ok := v.Load(); ok {
		t.Error("empty cell reported a value")
	}

	v.Store(42)
	got, ok := v.Load()
	if !ok || got != 42 {
		t.Errorf("Load = %d, %v, want 42, true", got, ok)
	}

	// Most recent wins.
	v.Store(7)
	if got, _ := v.Load(); got != 7 {
		t.Errorf("Load after overwrite = %d, want 7", got)
	}

	v.Clear()
	if _, ok := v.Load(); ok {
		t.Error("cleared cell reported a value")
	}
}

func TestValue_SubscribeNotifies(t *testing.T) {
	v := NewValue[string]()

	var seen []string
	v.Subscribe(func(s string) { seen = append(seen, s) })
	v.Subscribe(func(s string) {
		// Handlers may read the cell without deadlocking.
		if got, _ := v.Load(); got != s {
			t.Errorf("Load inside handler = %q, want %q", got, s)
		}
	})

	v.Store("first")
	v.Store("second")

	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Errorf("seen = %v", seen)
	}
}

func TestValue_ConcurrentAccess(t *testing.T) {
	v := NewValue[int]()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			v.Store(i)
		}(i)
		go func() {
			defer wg.Done()
			v.Load()
		}()
	}
	wg.Wait()

	if _, ok := v.Load(); !ok {
		t.Error("no value after concurrent stores")
	}
}
