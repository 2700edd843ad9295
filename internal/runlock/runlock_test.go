package runlock

import (
	"sync"
	"testing"
)

func TestHolderLifecycle(t *testing.T) {
	l := New()

	if holder, busy := l.Holder(); busy || holder != "" {
		t.Fatalf("fresh lock should be idle, got %q busy=%v", holder, busy)
	}

	l.Acquire("manual_Sale")
	if holder, busy := l.Holder(); !busy || holder != "manual_Sale" {
		t.Fatalf("expected holder manual_Sale, got %q busy=%v", holder, busy)
	}

	l.Release()
	if holder, busy := l.Holder(); busy || holder != "" {
		t.Fatalf("released lock should be idle, got %q busy=%v", holder, busy)
	}
}

func TestAcquireSerializes(t *testing.T) {
	l := New()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire("worker")
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
			l.Release()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("lock admitted %d holders at once", maxActive)
	}
}
