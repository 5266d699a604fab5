package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolExecutesJobs(t *testing.T) {
	pool := NewPool(2, 16)

	var count int64
	done := make(chan struct{}, 3)
	pool.Register(KindProcessDocument, func(ctx context.Context, job Job) error {
		atomic.AddInt64(&count, 1)
		done <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 3; i++ {
		if err := pool.Enqueue(Job{ID: "job", Kind: KindProcessDocument}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	if got := atomic.LoadInt64(&count); got != 3 {
		t.Errorf("executed %d jobs, want 3", got)
	}

	cancel()
	if err := pool.Wait(); err != nil {
		t.Errorf("Wait returned error: %v", err)
	}
}

func TestPoolRejectsWhenFull(t *testing.T) {
	pool := NewPool(1, 1)
	// No Start: nothing drains the queue.
	if err := pool.Enqueue(Job{ID: "a", Kind: KindProcessDocument}); err != nil {
		t.Fatalf("first Enqueue failed: %v", err)
	}
	if err := pool.Enqueue(Job{ID: "b", Kind: KindProcessDocument}); err == nil {
		t.Error("expected an error when the queue is full")
	}
}

func TestPerCompanyJobsSerialize(t *testing.T) {
	pool := NewPool(4, 16)

	var mu sync.Mutex
	running := map[string]int{}
	maxRunning := map[string]int{}
	done := make(chan struct{}, 8)

	pool.RegisterPerCompany(KindRunAnalysis, func(ctx context.Context, job Job) error {
		mu.Lock()
		running[job.CompanyID]++
		if running[job.CompanyID] > maxRunning[job.CompanyID] {
			maxRunning[job.CompanyID] = running[job.CompanyID]
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		running[job.CompanyID]--
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 4; i++ {
		if err := pool.Enqueue(Job{ID: "a", Kind: KindRunAnalysis, CompanyID: "acme"}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if err := pool.Enqueue(Job{ID: "b", Kind: KindRunAnalysis, CompanyID: "globex"}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	for i := 0; i < 8; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for company, peak := range maxRunning {
		if peak > 1 {
			t.Errorf("company %s had %d concurrent jobs, want at most 1", company, peak)
		}
	}
}

func TestLockCompanyBlocksPerCompanyJobs(t *testing.T) {
	pool := NewPool(2, 16)

	started := make(chan struct{}, 1)
	pool.RegisterPerCompany(KindRunAnalysis, func(ctx context.Context, job Job) error {
		started <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	// Holding the company lock must keep a queued job for the same company
	// from running until the lock is released.
	unlock := pool.LockCompany("acme")
	if err := pool.Enqueue(Job{ID: "a", Kind: KindRunAnalysis, CompanyID: "acme"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	select {
	case <-started:
		t.Fatal("job ran while the company lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran after the lock was released")
	}
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	km := newKeyedMutex()
	unlock := km.Lock("k")
	unlock()
	km.mu.Lock()
	defer km.mu.Unlock()
	if len(km.locks) != 0 {
		t.Errorf("expected no retained locks, have %d", len(km.locks))
	}
}
