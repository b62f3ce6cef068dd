// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package epoch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSynchronizeNoReaders(t *testing.T) {
	t.Parallel()

	var d Domain
	// must not block with nobody registered
	d.Synchronize()
	d.Synchronize()
}

func TestEnterLeaveBalance(t *testing.T) {
	t.Parallel()

	var d Domain
	g1 := d.Enter()
	g2 := d.Enter()
	g1.Leave()
	g2.Leave()

	done := make(chan struct{})
	go func() {
		d.Synchronize()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Synchronize blocked with no active readers")
	}
}

func TestSynchronizeWaitsForReader(t *testing.T) {
	t.Parallel()

	var d Domain
	g := d.Enter()

	synced := make(chan struct{})

	go func() {
		d.Synchronize()
		close(synced)
	}()

	select {
	case <-synced:
		t.Fatal("Synchronize returned with a guard still held")
	case <-time.After(50 * time.Millisecond):
	}

	g.Leave()

	select {
	case <-synced:
	case <-time.After(5 * time.Second):
		t.Fatal("Synchronize did not return after the guard left")
	}
}

// TestGracePeriod hammers the domain: readers copy a pointer under a
// guard while the writer retires the old value after Synchronize. A
// reader must never observe a value that was already reclaimed.
func TestGracePeriod(t *testing.T) {
	t.Parallel()

	var d Domain
	var current atomic.Pointer[int64]

	v := new(int64)
	current.Store(v)

	const readers = 4
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}

				g := d.Enter()
				p := current.Load()
				if atomic.LoadInt64(p) != 0 {
					t.Error("observed a reclaimed value under guard")
					g.Leave()
					return
				}
				g.Leave()
			}
		}()
	}

	for range 1000 {
		old := current.Load()
		current.Store(new(int64))

		d.Synchronize()

		// no guard can still see old, poison it
		atomic.StoreInt64(old, 1)
	}

	close(stop)
	wg.Wait()
}
