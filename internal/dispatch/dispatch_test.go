package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_ReturnsFunctionError(t *testing.T) {
	d := New(2, 8)
	defer d.Stop()

	want := errors.New("boom")
	if err := d.Do(context.Background(), "k", func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("Do() = %v, want %v", err, want)
	}
	if err := d.Do(context.Background(), "k", func() error { return nil }); err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
}

func TestDo_SameKeyRunsSerially(t *testing.T) {
	d := New(4, 16)
	defer d.Stop()

	var (
		running int32
		counter int // deliberately unsynchronized; serial execution keeps it exact
		wg      sync.WaitGroup
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.Do(context.Background(), "ABC/XYZ", func() error {
				if atomic.AddInt32(&running, 1) != 1 {
					return errors.New("two functions ran at once for one key")
				}
				counter++
				atomic.AddInt32(&running, -1)
				return nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if counter != 200 {
		t.Fatalf("counter = %d, want 200", counter)
	}
}

func TestDo_SameKeyKeepsSubmissionOrder(t *testing.T) {
	d := New(4, 64)
	defer d.Stop()

	var seen []int
	for i := 0; i < 50; i++ {
		i := i
		if err := d.Do(context.Background(), "ex-1", func() error {
			seen = append(seen, i)
			return nil
		}); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	for i, v := range seen {
		if v != i {
			t.Fatalf("seen[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestDo_DifferentKeysRunInParallel(t *testing.T) {
	d := New(8, 1)
	defer d.Stop()

	// Find two keys owned by different workers.
	keyA := "key-0"
	keyB := ""
	for i := 1; i < 100; i++ {
		k := fmt.Sprintf("key-%d", i)
		if d.route(k) != d.route(keyA) {
			keyB = k
			break
		}
	}
	if keyB == "" {
		t.Fatal("could not find keys on different workers")
	}

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = d.Do(context.Background(), keyA, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	done := make(chan error, 1)
	go func() {
		done <- d.Do(context.Background(), keyB, func() error { return nil })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Do(%s): %v", keyB, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("a busy key blocked an unrelated key")
	}
	close(release)
}

func TestDo_CancelledContextSkipsQueuedWork(t *testing.T) {
	d := New(1, 4)
	defer d.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = d.Do(context.Background(), "k", func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)
	result := make(chan error, 1)
	go func() {
		result <- d.Do(ctx, "k", func() error {
			ran <- struct{}{}
			return nil
		})
	}()
	// Give the job time to be queued behind the blocked one.
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(release)

	if err := <-result; !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() = %v, want context.Canceled", err)
	}
	select {
	case <-ran:
		t.Fatal("cancelled job should not run")
	default:
	}
}

func TestDo_RecoversPanics(t *testing.T) {
	d := New(1, 1)
	defer d.Stop()

	err := d.Do(context.Background(), "k", func() error { panic("bad book") })
	if err == nil {
		t.Fatal("expected error from panicking function")
	}
	// Worker must still be alive.
	if err := d.Do(context.Background(), "k", func() error { return nil }); err != nil {
		t.Fatalf("worker did not survive panic: %v", err)
	}
}

func TestStop_RejectsNewWorkAndIsIdempotent(t *testing.T) {
	d := New(2, 2)
	if d.Workers() != 2 {
		t.Fatalf("Workers() = %d, want 2", d.Workers())
	}
	d.Stop()
	d.Stop()

	if err := d.Do(context.Background(), "k", func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("Do() after Stop = %v, want ErrStopped", err)
	}
}

func TestNew_DefaultsToCPUCount(t *testing.T) {
	d := New(0, 0)
	defer d.Stop()
	if d.Workers() < 1 {
		t.Fatalf("Workers() = %d, want >= 1", d.Workers())
	}
}
