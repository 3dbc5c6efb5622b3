// Command cmactl inspects and changes entries of a content management API
// space from the command line. Output is JSON on stdout; logs go to stderr.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cmsweb/cmaclient/internal/logger"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	baseURL     string
	token       string
	space       string
	environment string
	debug       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "cmactl",
		Short:         "cmactl reads and transitions content management API resources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = logger.Console("cmactl", cmd.ErrOrStderr(), opts.debug)
			if opts.debug {
				log.Debug().Msg("debug logging enabled")
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", getEnv("CMA_BASE_URL", "https://api.contentful.com"), "Base URL of the management API")
	flags.StringVar(&opts.token, "token", os.Getenv("CMA_ACCESS_TOKEN"), "Management API access token")
	flags.StringVar(&opts.space, "space", os.Getenv("CMA_SPACE_ID"), "Space id")
	flags.StringVar(&opts.environment, "environment", getEnv("CMA_ENVIRONMENT", "master"), "Environment id")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "Enable verbose debug output, including HTTP dumps")

	rootCmd.AddCommand(newGetSpaceCmd(opts))
	rootCmd.AddCommand(newListContentTypesCmd(opts))
	rootCmd.AddCommand(newListEntriesCmd(opts))
	rootCmd.AddCommand(newGetEntryCmd(opts))
	rootCmd.AddCommand(newPublishEntryCmd(opts))
	rootCmd.AddCommand(newTransitionCmd(opts, "unpublish-entry", "Unpublish an entry", transitionUnpublish))
	rootCmd.AddCommand(newTransitionCmd(opts, "archive-entry", "Archive an unpublished entry", transitionArchive))
	rootCmd.AddCommand(newTransitionCmd(opts, "unarchive-entry", "Restore an archived entry", transitionUnarchive))
	rootCmd.AddCommand(newTransitionCmd(opts, "delete-entry", "Delete an entry", transitionDelete))
	rootCmd.AddCommand(newFakeServerCmd())

	return rootCmd
}
