package client

import (
	"context"

	"github.com/cmsweb/cmaclient/client/internal/shardqueue"
)

// executor abstracts the internal async job runner used by async APIs.
type executor interface {
	Submit(context.Context, string, shardqueue.Job) error
	Barrier(context.Context, string) error
	Stop()
}

var _ executor = (*shardqueue.Executor)(nil)
