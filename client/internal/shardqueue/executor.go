// Package shardqueue runs keyed jobs on a fixed set of worker goroutines.
// Jobs submitted under the same key land on the same shard and run one at a
// time in submission order; different keys may run in parallel.
//
// Submit must not be called concurrently for the same key: FIFO order is the
// order in which Submit calls for that key return.
package shardqueue

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	cmaerrors "github.com/cmsweb/cmaclient/client/internal/errors"
)

type queuedJob struct {
	ctx context.Context
	key string
	job Job
}

// Executor is a sharded FIFO-per-key job runner.
type Executor struct {
	cfg    Config
	queues []chan queuedJob

	done   chan struct{}
	closed atomic.Bool

	wg sync.WaitGroup
}

// NewExecutor starts cfg.Shards workers.
func NewExecutor(cfg Config) *Executor {
	cfg = cfg.withDefaults()
	p := &Executor{
		cfg:    cfg,
		queues: make([]chan queuedJob, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := range p.queues {
		ch := make(chan queuedJob, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.worker(i, ch)
	}
	return p
}

// Submit enqueues job on the shard for key. It fails with ErrExecutorClosed
// after Stop, with a *QueueFullError when the shard stays full for
// EnqueueTimeout, or with ctx.Err() when ctx ends first. ctx is also the
// context the job runs with.
func (p *Executor) Submit(ctx context.Context, key string, job Job) error {
	if p.closed.Load() {
		return ErrExecutorClosed
	}
	select {
	case <-p.done:
		return ErrExecutorClosed
	default:
	}

	shard := p.shardFor(key)
	ch := p.queues[shard]
	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- queuedJob{ctx: ctx, key: key, job: job}:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil
	case <-p.done:
		return ErrExecutorClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{Shard: shard, Length: len(ch), Capacity: cap(ch)}
	}
}

// Barrier waits until every job submitted for key before the call has run.
func (p *Executor) Barrier(ctx context.Context, key string) error {
	reached := make(chan struct{})
	if err := p.Submit(ctx, key, JobFunc(func(context.Context) error {
		close(reached)
		return nil
	})); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-reached:
		return nil
	}
}

// Stop rejects new work, lets every worker drain its queue and waits for
// them. It is idempotent.
func (p *Executor) Stop() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	log.Debug().Int("shards", p.cfg.Shards).Msg("shardqueue: stopping, draining queues")
	close(p.done)
	p.wg.Wait()
	log.Debug().Msg("shardqueue: stopped")
}

// Close implements io.Closer.
func (p *Executor) Close() error {
	p.Stop()
	return nil
}

func (p *Executor) worker(shard int, ch <-chan queuedJob) {
	defer p.wg.Done()
	label := labelFor(shard)

	for {
		select {
		case qj := <-ch:
			p.execute(label, qj)
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))
		case <-p.done:
			drained := 0
			for {
				select {
				case qj := <-ch:
					p.execute(label, qj)
					drained++
				default:
					if drained > 0 {
						log.Debug().Int("shard", shard).Int("jobs", drained).Msg("shardqueue: drained")
					}
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// execute runs one job to completion. A job whose context ended while it
// waited is skipped. Recoverable failures are retried with exponential
// backoff up to MaxAttempts; irrecoverable ones are not.
func (p *Executor) execute(label string, qj queuedJob) {
	if qj.job == nil {
		return
	}
	if err := qj.ctx.Err(); err != nil {
		p.fail(label, qj.key, err)
		return
	}

	attempt := func() error {
		start := time.Now()
		err := runGuarded(qj.ctx, qj.job)
		runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		_, panicked := err.(*PanicError)
		if err != nil && (panicked || cmaerrors.IsIrrecoverable(err)) {
			return backoff.Permanent(err)
		}
		return err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.BaseBackoff
	exp.MaxInterval = p.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.cfg.MaxAttempts-1)), qj.ctx)

	err := backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		log.Debug().Err(err).Str("key", qj.key).Dur("wait", wait).Msg("shardqueue: retrying job")
	})
	if err != nil {
		p.fail(label, qj.key, err)
	}
}

func (p *Executor) fail(label, key string, err error) {
	failuresTotal.WithLabelValues(label).Inc()
	if p.cfg.ErrorHandler == nil {
		log.Warn().Err(err).Str("key", key).Msg("shardqueue: job failed")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("key", key).Msg("shardqueue: error handler panic")
		}
	}()
	p.cfg.ErrorHandler(key, err)
}

func (p *Executor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}

// runGuarded turns a panicking job into a *PanicError so the worker survives.
func runGuarded(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return job.Run(ctx)
}
