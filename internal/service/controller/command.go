package controller

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/lvc/internal/api/grpc/controller"
	"github.com/oshokin/lvc/internal/config"
	"github.com/oshokin/lvc/internal/logger"
	"github.com/oshokin/lvc/internal/repository/journal"
	"github.com/oshokin/lvc/internal/repository/snapshot"
	"github.com/oshokin/lvc/internal/repository/state"
	"github.com/oshokin/lvc/internal/service/sink"
)

// Options controls the lvc-controller process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC API.
	ListenAddress string
	// StateFile overrides the carried-over state file.
	StateFile string
	// SnapshotFile overrides the acquisition snapshot file.
	SnapshotFile string
	// Once runs a single cycle and exits without serving the API.
	Once bool
}

// Run starts the control loop and the gRPC API and blocks until ctx is canceled,
// the server stops or the loop terminates.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "lvc-controller")

	settings, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok && settings.LogLevel != "" {
		logger.SetLevel(level)
	}

	emitter, events, closeSinks, err := buildSinks(ctx, settings)
	if err != nil {
		return err
	}

	defer closeSinks()

	svc, err := New(ctx, Deps{
		Source:                   snapshot.NewFileSource(settings.SnapshotFile),
		Sink:                     emitter,
		Repository:               state.NewFileRepository(settings.StateFile),
		Events:                   events,
		EventLimit:               settings.RecentEvents,
		TerminateOnReportFailure: settings.TerminateOnReportFailure,
	})
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	if opts.Once {
		_, err = svc.RunCycle(ctx)

		return err
	}

	return serve(ctx, svc, settings)
}

// applyOverrides copies command-line values over the settings file.
func applyOverrides(settings *config.Config, opts *Options) {
	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if opts.StateFile != "" {
		settings.StateFile = opts.StateFile
	}

	if opts.SnapshotFile != "" {
		settings.SnapshotFile = opts.SnapshotFile
	}
}

// buildSinks assembles the event fan-out: process log, in-memory recorder,
// the optional SQL journal and the optional best-effort Redis stream.
// Recent events are served from the journal when one is configured, otherwise from the recorder.
func buildSinks(ctx context.Context, settings *config.Config) (sink.Emitter, EventLister, func(), error) {
	var (
		recorder = sink.NewRecorder(settings.RecentEvents)
		fanout   = sink.Fanout{sink.NewLogger(nil), recorder}
		events   EventLister
		closers  []func() error
	)

	events = recorder

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.WarnKV(ctx, "Close sink", "error", err)
			}
		}
	}

	if settings.Journal.DSN != "" {
		store, err := journal.Open(ctx, settings.Journal.Driver, settings.Journal.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open journal: %w", err)
		}

		closers = append(closers, store.Close)
		fanout = append(fanout, store)
		events = store

		logger.InfoKV(ctx, "Event journal enabled", "driver", settings.Journal.Driver)
	}

	if settings.Redis.Address != "" {
		client, err := sink.DialRedis(ctx, settings.Redis.Address, settings.Redis.Password)
		if err != nil {
			closeAll()

			return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
		}

		redisSink := sink.NewRedis(client, settings.Redis.KeyPrefix)
		closers = append(closers, redisSink.Close)
		fanout = append(fanout, sink.BestEffort("redis", redisSink))

		logger.InfoKV(ctx, "Redis event stream enabled", "address", settings.Redis.Address, "channel", redisSink.Channel())
	}

	return fanout, events, closeAll, nil
}

// serve runs the control loop and the gRPC API until either stops.
func serve(ctx context.Context, svc *Service, settings *config.Config) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", settings.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.ListenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterControllerServiceServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Controller listening",
		"listen_address", settings.ListenAddress,
		"state_file", settings.StateFile,
		"snapshot_file", settings.SnapshotFile)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Loop(gctx, settings.CycleInterval)
	})

	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	err = g.Wait()

	logger.Info(ctx, "Controller stopped")

	return err
}
