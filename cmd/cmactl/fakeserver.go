package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cmsweb/cmaclient/internal/fakecma"
)

// newFakeServerCmd serves the in-memory API for local experiments.
func newFakeServerCmd() *cobra.Command {
	var (
		addr   string
		token  string
		spaces []string
		seeds  []string
	)
	cmd := &cobra.Command{
		Use:   "fake-server",
		Short: "Serve an in-memory management API for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := fakecma.New(token)
			for _, id := range spaces {
				srv.AddSpace(id, id)
			}
			for _, path := range seeds {
				if err := seedFile(srv, path); err != nil {
					return err
				}
			}
			hs := &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				<-cmd.Context().Done()
				_ = hs.Close()
			}()
			log.Info().Str("addr", addr).Strs("spaces", spaces).Msg("fake API listening")
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8089", "Listen address")
	cmd.Flags().StringVar(&token, "require-token", "", "Bearer token clients must send; empty disables auth")
	cmd.Flags().StringSliceVar(&spaces, "create-space", []string{"dev"}, "Spaces to create")
	cmd.Flags().StringSliceVar(&seeds, "seed", nil, "JSON seed files: arrays of {space, environment, collection, record}")
	return cmd
}

func seedFile(srv *fakecma.Server, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return srv.SeedFile(raw)
}
