package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/lvc/internal/config"
	"github.com/oshokin/lvc/internal/service/client"
	"github.com/oshokin/lvc/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the controller address from config.
	serverAddress string

	// rootCmd represents the base command of the controller client.
	rootCmd = &cobra.Command{
		Use:   "lvc-ctl",
		Short: "Query and control a running lvc-controller.",
		Long: `Talks to a running lvc-controller over gRPC.

Use "status" to see substation control state, "events" for the recent
routine and belly-up records and "issue" to arm a control for verification
in the next cycle.`,
	}

	// statusCmd prints substation state.
	statusCmd = &cobra.Command{
		Use:   "status [substation-id]",
		Short: "Show control state of one or all substations.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var substationID string
			if len(args) > 0 {
				substationID = args[0]
			}

			return withSignals(func(ctx context.Context) error {
				return client.Status(ctx, options(cmd), substationID)
			})
		},
	}

	// eventsCmd prints recent events.
	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Show recent routine and belly-up events.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSignals(func(ctx context.Context) error {
				return client.Events(ctx, options(cmd))
			})
		},
	}

	// issueCmd arms a control.
	issueCmd = &cobra.Command{
		Use:   "issue <substation-id> <device-id> <RaiseTap|LowerTap|SwitchCapacitorIn|SwitchCapacitorOut>",
		Short: "Record a control sent to a transformer so the next cycle verifies it.",
		Args:  cobra.ExactArgs(3), //nolint:mnd // Substation, device and control kind.
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSignals(func(ctx context.Context) error {
				return client.Issue(ctx, options(cmd), args[0], args[1], args[2])
			})
		},
	}
)

// Execute runs the lvc-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// options builds client options from the global flags.
func options(cmd *cobra.Command) *client.Options {
	return &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Out:           cmd.OutOrStdout(),
	}
}

// withSignals runs fn with a context canceled on SIGTERM or SIGINT.
func withSignals(fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return fn(ctx)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "a", "", "controller address (overrides config)")

	rootCmd.AddCommand(statusCmd, eventsCmd, issueCmd)
}
