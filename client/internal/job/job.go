// Package job builds the queued entity mutations run by the client's
// shard executor.
package job

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
)

// ErrNilJobFunc is returned when a mutation has no function to run.
var ErrNilJobFunc = errors.New("nil job func")

// Mutation is one queued state transition of the entity identified by Key.
type Mutation struct {
	Op  string
	Key string
	fn  func(context.Context) error
}

// New returns a mutation that runs fn. Errors from fn are prefixed with op
// and key.
func New(op, key string, fn func(context.Context) error) *Mutation {
	return &Mutation{Op: op, Key: key, fn: fn}
}

// Run implements shardqueue.Job.
func (m *Mutation) Run(ctx context.Context) error {
	if m == nil || m.fn == nil {
		return fmt.Errorf("job: %w", ErrNilJobFunc)
	}
	if err := m.fn(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", m.Op, m.Key, err)
	}
	return nil
}

// ShardLabel hashes key to a metrics label in [0, 31].
func ShardLabel(key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return strconv.FormatUint(uint64(h.Sum32()%32), 10)
}
