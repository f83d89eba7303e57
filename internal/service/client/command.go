package client

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/lvc/internal/config"
	"github.com/oshokin/lvc/internal/domain/voltvar"
	"github.com/oshokin/lvc/internal/logger"
	"github.com/oshokin/lvc/internal/service/common"
)

// Options configures how lvc-ctl reaches the controller.
type Options struct {
	// ConfigPath to YAML settings file, defaults are used when it does not exist.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Out receives the command output. Defaults to stdout.
	Out io.Writer
}

// Status prints one substation, or every substation when substationID is empty.
func Status(ctx context.Context, opts *Options, substationID string) error {
	return withClient(ctx, opts, func(ctx context.Context, client *common.Client, out io.Writer) error {
		if substationID != "" {
			state, err := client.GetSubstation(ctx, substationID)
			if err != nil {
				return err
			}

			printSubstation(out, state)

			return nil
		}

		states, err := client.ListSubstations(ctx)
		if err != nil {
			return err
		}

		for _, state := range states {
			printSubstation(out, state)
		}

		return nil
	})
}

// Events prints the events recently emitted by the controller.
func Events(ctx context.Context, opts *Options) error {
	return withClient(ctx, opts, func(ctx context.Context, client *common.Client, out io.Writer) error {
		events, err := client.ListEvents(ctx)
		if err != nil {
			return err
		}

		for _, e := range events {
			_, _ = fmt.Fprintf(out, "%s %-8s %s %s\n",
				e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Severity, e.SubstationID, e.Message)
		}

		return nil
	})
}

// Issue arms a control on a transformer on behalf of the current system user.
func Issue(ctx context.Context, opts *Options, substationID, deviceID, kindName string) error {
	kind, ok := voltvar.ParseControlKind(kindName)
	if !ok || kind == voltvar.ControlNone {
		return fmt.Errorf("%w: %q", voltvar.ErrNoControl, kindName)
	}

	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	return withClient(ctx, opts, func(ctx context.Context, client *common.Client, out io.Writer) error {
		state, err := client.IssueControl(ctx, substationID, deviceID, kind, actor)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Control issued", "substation_id", substationID, "device_id", deviceID, "control", kind.String())
		printSubstation(out, state)

		return nil
	})
}

// withClient loads settings, dials the controller and runs fn.
func withClient(
	ctx context.Context,
	opts *Options,
	fn func(ctx context.Context, client *common.Client, out io.Writer) error,
) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "lvc-ctl")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return fn(ctx, client, out)
}

// printSubstation renders a substation and its transformers.
func printSubstation(out io.Writer, s *voltvar.SubstationControlState) {
	_, _ = fmt.Fprintf(out, "%s tie=%s failed_controls=%d pending=%d\n",
		s.SubstationID, s.TieBreakerState, s.FailedControlCount, s.PendingCount())

	for i := range s.Transformers {
		r := &s.Transformers[i]

		_, _ = fmt.Fprintf(out, "  %s %s tap=%s->%s mvar=%s->%s last=%s pending=%t\n",
			r.DeviceID, r.ControlID,
			voltvar.FormatReading(r.TapPositionBefore), voltvar.FormatReading(r.TapPositionAfter),
			voltvar.FormatReading(r.MVARBefore), voltvar.FormatReading(r.MVARAfter),
			r.PreviousControlKind, r.ControlPending)
	}
}
