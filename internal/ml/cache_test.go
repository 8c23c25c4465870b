package ml

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_GetOrTrainSharesOneRun(t *testing.T) {
	cache := NewCache()
	var trainCalls int32

	train := func(ctx context.Context) (*Artifact, error) {
		atomic.AddInt32(&trainCalls, 1)
		time.Sleep(50 * time.Millisecond)
		return &Artifact{TrainedAt: time.Now().UTC()}, nil
	}

	const workers = 8
	results := make([]*Artifact, workers)
	errs := make([]error, workers)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			results[i], errs[i] = cache.GetOrTrain(context.Background(), "m", train)
		}(i)
	}
	start.Done()
	done.Wait()

	if got := atomic.LoadInt32(&trainCalls); got != 1 {
		t.Errorf("train ran %d times, want 1", got)
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("worker %d got a different artifact", i)
		}
	}
}

func TestCache_InvalidateForcesRetrain(t *testing.T) {
	cache := NewCache()
	var trainCalls int32

	train := func(ctx context.Context) (*Artifact, error) {
		atomic.AddInt32(&trainCalls, 1)
		return &Artifact{TrainedAt: time.Now().UTC()}, nil
	}

	if _, err := cache.GetOrTrain(context.Background(), "m", train); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetOrTrain(context.Background(), "m", train); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&trainCalls); got != 1 {
		t.Fatalf("train ran %d times before invalidation, want 1", got)
	}

	cache.Invalidate("m")
	if _, ok := cache.Get("m"); ok {
		t.Fatal("entry survived invalidation")
	}

	if _, err := cache.GetOrTrain(context.Background(), "m", train); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&trainCalls); got != 2 {
		t.Errorf("train ran %d times after invalidation, want 2", got)
	}
}

func TestCache_FailedTrainCachesNothing(t *testing.T) {
	cache := NewCache()
	boom := errors.New("boom")

	_, err := cache.GetOrTrain(context.Background(), "m", func(ctx context.Context) (*Artifact, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if cache.Len() != 0 {
		t.Error("failed training left an entry behind")
	}

	// The next call retries and can succeed.
	a, err := cache.GetOrTrain(context.Background(), "m", func(ctx context.Context) (*Artifact, error) {
		return &Artifact{TrainedAt: time.Now().UTC()}, nil
	})
	if err != nil || a == nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestCache_PutReplaces(t *testing.T) {
	cache := NewCache()
	a := &Artifact{TrainedAt: time.Now().UTC()}
	b := &Artifact{TrainedAt: time.Now().UTC().Add(time.Hour)}

	cache.Put("m", a)
	cache.Put("m", b)

	got, ok := cache.Get("m")
	if !ok || got != b {
		t.Error("expected the later artifact to win")
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}
