package shardqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func noop(context.Context) error { return nil }

// blockShard occupies the worker of key's shard until the returned func is
// called.
func blockShard(t *testing.T, ex *Executor, key string) func() {
	t.Helper()
	release := make(chan struct{})
	started := make(chan struct{})
	if err := ex.Submit(context.Background(), key, JobFunc(func(context.Context) error {
		close(started)
		<-release
		return nil
	})); err != nil {
		t.Fatalf("submit blocking job: %v", err)
	}
	<-started
	var once sync.Once
	return func() { once.Do(func() { close(release) }) }
}

func TestExecutor_FIFOPerKey(t *testing.T) {
	t.Parallel()
	ex := NewExecutor(Config{Shards: 4, QueueSize: 16})
	defer ex.Stop()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 10; i++ {
		v := i
		if err := ex.Submit(context.Background(), "Entry.e1", JobFunc(func(context.Context) error {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			return nil
		})); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ex.Barrier(ctx, "Entry.e1"); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if i != v {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
	if len(order) != 10 {
		t.Fatalf("barrier returned before all jobs ran: %v", order)
	}
}

func TestExecutor_SerialForSameKey(t *testing.T) {
	t.Parallel()
	const n = 100
	ex := NewExecutor(Config{Shards: 4, QueueSize: n})
	defer ex.Stop()

	var inFlight, overlap int32
	for i := 0; i < n; i++ {
		_ = ex.Submit(context.Background(), "Asset.a1", JobFunc(func(context.Context) error {
			if atomic.AddInt32(&inFlight, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(50 * time.Microsecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ex.Barrier(ctx, "Asset.a1"); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if atomic.LoadInt32(&overlap) == 1 {
		t.Fatal("jobs for the same key overlapped")
	}
}

func TestExecutor_DifferentShardsRunInParallel(t *testing.T) {
	t.Parallel()
	ex := NewExecutor(Config{Shards: 4, QueueSize: 4})
	defer ex.Stop()

	keyA, keyB := "Entry.a", "Entry.b"
	for i := 0; ex.shardFor(keyB) == ex.shardFor(keyA); i++ {
		keyB += "x"
		if i > 100 {
			t.Fatal("no keys on different shards")
		}
	}

	start := make(chan struct{})
	done := make(chan struct{})
	_ = ex.Submit(context.Background(), keyA, JobFunc(func(context.Context) error {
		<-start
		close(done)
		return nil
	}))
	_ = ex.Submit(context.Background(), keyB, JobFunc(func(context.Context) error {
		close(start)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shards blocked each other")
	}
}

func TestExecutor_QueueFull(t *testing.T) {
	t.Parallel()
	ex := NewExecutor(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: 10 * time.Millisecond})
	defer ex.Stop()
	release := blockShard(t, ex, "k")
	defer release()

	if err := ex.Submit(context.Background(), "k", JobFunc(noop)); err != nil {
		t.Fatalf("fill buffer: %v", err)
	}
	err := ex.Submit(context.Background(), "k", JobFunc(noop))
	var qf *QueueFullError
	if !errors.As(err, &qf) || !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected QueueFullError, got %v", err)
	}
	if qf.Capacity != 1 || qf.Length != 1 {
		t.Fatalf("unexpected queue stats: %+v", qf)
	}
}

func TestExecutor_SubmitContextCanceledWhileWaiting(t *testing.T) {
	t.Parallel()
	ex := NewExecutor(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: time.Second})
	defer ex.Stop()
	release := blockShard(t, ex, "k")
	defer release()
	_ = ex.Submit(context.Background(), "k", JobFunc(noop))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ex.Submit(ctx, "k", JobFunc(noop)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExecutor_StopWhileSubmitWaits(t *testing.T) {
	t.Parallel()
	ex := NewExecutor(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: time.Second})
	release := blockShard(t, ex, "k")
	_ = ex.Submit(context.Background(), "k", JobFunc(noop))

	errCh := make(chan error, 1)
	go func() { errCh <- ex.Submit(context.Background(), "k", JobFunc(noop)) }()
	time.Sleep(10 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		ex.Stop()
		close(stopped)
	}()
	release()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, ErrExecutorClosed) {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("submit did not return after Stop")
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not complete")
	}
}

func TestExecutor_SubmitAfterStop(t *testing.T) {
	t.Parallel()
	ex := NewExecutor(Config{Shards: 2, QueueSize: 2})
	ex.Stop()
	ex.Stop()

	if err := ex.Submit(context.Background(), "k", JobFunc(noop)); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
	if err := ex.Barrier(context.Background(), "k"); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed from Barrier, got %v", err)
	}
}

func TestExecutor_StopDrainsQueuedJobs(t *testing.T) {
	t.Parallel()
	ex := NewExecutor(Config{Shards: 1, QueueSize: 8})
	release := blockShard(t, ex, "k")

	var ran int32
	for i := 0; i < 5; i++ {
		_ = ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}))
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()
	ex.Stop()
	if got := atomic.LoadInt32(&ran); got != 5 {
		t.Fatalf("drained %d jobs, want 5", got)
	}
}

func TestExecutor_StopRacingSubmit(t *testing.T) {
	t.Parallel()
	ex := NewExecutor(Config{Shards: 4, QueueSize: 32})
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ex.Submit(context.Background(), "k", JobFunc(noop))
		}()
	}
	go ex.Stop()
	wg.Wait()
}
