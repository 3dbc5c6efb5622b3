package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmsweb/cmaclient/client"
)

const commandTimeout = 30 * time.Second

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// session is a client plus the resolved space for one command run.
type session struct {
	client *client.Client
	space  *client.Space
	scope  *client.Scope
}

func (o *rootOptions) open(ctx context.Context) (*session, error) {
	if o.space == "" {
		return nil, fmt.Errorf("--space (or CMA_SPACE_ID) is required")
	}
	c, err := client.New(o.baseURL, o.token, client.WithDebugLogging(o.debug))
	if err != nil {
		return nil, err
	}
	sp, err := c.GetSpace(ctx, o.space)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("get space %s: %w", o.space, err)
	}
	return &session{client: c, space: sp, scope: sp.InEnvironment(o.environment)}, nil
}

func (s *session) Close() error { return s.client.Close() }

// run opens a session with the command timeout and calls fn.
func (o *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) (any, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	s, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := fn(ctx, s)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// pageJSON is the output shape of list commands.
type pageJSON[T any] struct {
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Items []T `json:"items"`
}
