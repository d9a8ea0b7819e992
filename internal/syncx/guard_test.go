package syncx

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGuardGetSet(t *testing.T) {
	g := NewGuard(10)
	if g.Get() != 10 {
		t.Errorf("Get = %d, want 10", g.Get())
	}

	g.Set(20)
	if g.Get() != 20 {
		t.Errorf("Get after Set = %d, want 20", g.Get())
	}
}

func TestGuardSwap(t *testing.T) {
	g := NewGuard("a")
	old := g.Swap("b")
	if old != "a" {
		t.Errorf("Swap returned %q, want a", old)
	}
	if g.Get() != "b" {
		t.Errorf("Get = %q, want b", g.Get())
	}
}

func TestGuardUpdate(t *testing.T) {
	g := NewGuard(0)
	result := g.Update(func(v *int) any {
		*v++
		return *v
	})
	if result.(int) != 1 || g.Get() != 1 {
		t.Errorf("Update result = %v, value = %d, want 1", result, g.Get())
	}
}

func TestGuardConcurrent(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Update(func(v *int) any {
				*v++
				return nil
			})
		}()
	}
	wg.Wait()

	if g.Get() != 100 {
		t.Errorf("final value = %d, want 100", g.Get())
	}
}

func TestSemaphoreBoundsParallelism(t *testing.T) {
	s := NewSemaphore(2)
	ctx := context.Background()

	if err := s.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	// Third acquire must block until a release.
	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := s.Acquire(blocked); err == nil {
		t.Fatal("third Acquire should block while semaphore is full")
	}

	s.Release()
	if err := s.Acquire(ctx); err != nil {
		t.Errorf("Acquire after Release: %v", err)
	}
}

func TestSemaphoreMinimumCapacity(t *testing.T) {
	s := NewSemaphore(0)
	if err := s.Acquire(context.Background()); err != nil {
		t.Errorf("zero-capacity semaphore should clamp to 1: %v", err)
	}
}
