package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cmsweb/cmaclient/client"
)

func newGetSpaceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get-space",
		Short: "Show the space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.space.Entity, nil
			})
		},
	}
}

func newListContentTypesCmd(opts *rootOptions) *cobra.Command {
	var limit, skip int
	cmd := &cobra.Command{
		Use:   "list-content-types",
		Short: "List content types of the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) (any, error) {
				q := client.NewQuery()
				if limit > 0 {
					q = q.Limit(limit)
				}
				if skip > 0 {
					q = q.Skip(skip)
				}
				page, err := s.scope.ContentTypes().List(ctx, q)
				if err != nil {
					return nil, err
				}
				return pageJSON[*client.ContentType]{Total: page.Total, Skip: page.Skip, Limit: page.Limit, Items: page.Items}, nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&skip, "skip", 0, "Page offset")
	return cmd
}

func newListEntriesCmd(opts *rootOptions) *cobra.Command {
	var (
		contentType string
		include     int
		limit, skip int
		order       string
	)
	cmd := &cobra.Command{
		Use:   "list-entries",
		Short: "List entries of the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) (any, error) {
				q := client.NewQuery()
				if contentType != "" {
					q = q.ContentType(contentType)
				}
				if cmd.Flags().Changed("include") {
					q = q.Include(include)
				}
				if limit > 0 {
					q = q.Limit(limit)
				}
				if skip > 0 {
					q = q.Skip(skip)
				}
				if order != "" {
					q = q.Order(order)
				}
				page, err := s.scope.Entries().List(ctx, q)
				if err != nil {
					return nil, err
				}
				log.Debug().Int("total", page.Total).Int("items", len(page.Items)).Msg("entries listed")
				return pageJSON[*client.Entry]{Total: page.Total, Skip: page.Skip, Limit: page.Limit, Items: page.Items}, nil
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Only entries of this content type")
	cmd.Flags().IntVar(&include, "include", 1, "Levels of linked entries and assets to include")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&skip, "skip", 0, "Page offset")
	cmd.Flags().StringVar(&order, "order", "", "Sort order, e.g. -sys.updatedAt")
	return cmd
}

func newGetEntryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get-entry <entry-id>",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.scope.Entries().Get(ctx, args[0])
			})
		},
	}
}

func newPublishEntryCmd(opts *rootOptions) *cobra.Command {
	var (
		version int
		async   bool
	)
	cmd := &cobra.Command{
		Use:   "publish-entry <entry-id>",
		Short: "Publish an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) (any, error) {
				e, err := s.scope.Entries().Get(ctx, args[0])
				if err != nil {
					return nil, err
				}
				switch {
				case version > 0:
					err = e.PublishVersion(ctx, version)
				case async:
					err = publishAsync(ctx, s.client, e)
				default:
					err = e.Publish(ctx)
				}
				if err != nil {
					return nil, err
				}
				return e, nil
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Publish with this version instead of the fetched one")
	cmd.Flags().BoolVar(&async, "async", false, "Queue the publish and wait for the queue to drain")
	return cmd
}

// publishAsync queues the publish and surfaces its failure.
func publishAsync(ctx context.Context, c *client.Client, e *client.Entry) error {
	identity, _ := e.Identity()
	if err := c.PublishAsync(ctx, e); err != nil {
		return err
	}
	if err := c.AwaitConsistency(ctx, identity); err != nil {
		return err
	}
	if !e.IsPublished() {
		return fmt.Errorf("publish of %s did not complete; see log", identity)
	}
	return nil
}

type transition int

const (
	transitionUnpublish transition = iota
	transitionArchive
	transitionUnarchive
	transitionDelete
)

func (t transition) apply(ctx context.Context, e *client.Entry) error {
	switch t {
	case transitionUnpublish:
		return e.Unpublish(ctx)
	case transitionArchive:
		return e.Archive(ctx)
	case transitionUnarchive:
		return e.Unarchive(ctx)
	case transitionDelete:
		return e.Delete(ctx)
	}
	return fmt.Errorf("unknown transition %d", t)
}

func newTransitionCmd(opts *rootOptions, use, short string, t transition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <entry-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) (any, error) {
				e, err := s.scope.Entries().Get(ctx, args[0])
				if err != nil {
					return nil, err
				}
				if err := t.apply(ctx, e); err != nil {
					return nil, err
				}
				log.Info().Str("entry", e.ID()).Str("state", string(e.State())).Int("version", e.Version()).Msg(use)
				return e, nil
			})
		},
	}
}
