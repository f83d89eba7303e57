package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/lvc/internal/config"
	"github.com/oshokin/lvc/internal/service/controller"
	"github.com/oshokin/lvc/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile path where the fleet state is carried over.
	stateFile string
	// snapshotFile path the acquisition readings are read from.
	snapshotFile string
	// once runs a single cycle and exits.
	once bool

	// rootCmd represents the base command for running the controller.
	rootCmd = &cobra.Command{
		Use:   "lvc-controller [listen-address]",
		Short: "Run the volt/var control loop and its gRPC status API.",
		Long: `Starts the volt/var controller.

Every cycle the controller reads the fleet snapshot, verifies the controls issued
in the previous cycle and checks every bus tie. A control that moved neither the
tap position nor the reactive power by at least 0.2 is logged as failed. An open or
unreadable tie is reported on the belly-up channel and blocks tie-based balancing.

State is saved after every cycle so controls issued before a restart are still verified.
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &controller.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				StateFile:     stateFile,
				SnapshotFile:  snapshotFile,
				Once:          once,
			}

			return controller.Run(ctx, options)
		},
	}
)

// Execute runs the lvc-controller CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&stateFile, "state-file", "s", "", "path to persist fleet state (overrides config)")
	rootCmd.Flags().
		StringVarP(&snapshotFile, "snapshot", "n", "", "path to the acquisition snapshot (overrides config)")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single control cycle and exit")
}
