package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/lvc/internal/logger"
	"github.com/oshokin/lvc/internal/service/verifier"
)

// Loop runs a cycle immediately and then once per interval until ctx is canceled.
//
// Cycle errors are logged and the loop continues, except for an undelivered belly-up
// report when TerminateOnReportFailure is set: Loop then returns ErrReportUndelivered.
func (s *Service) Loop(ctx context.Context, interval time.Duration) error {
	logger.InfoKV(ctx, "Control loop started", "interval", interval.String())

	if err := s.cycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, control loop exiting")

			return nil
		case <-ticker.C:
			if err := s.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

// cycle runs one cycle and decides whether its error ends the loop.
func (s *Service) cycle(ctx context.Context) error {
	report, err := s.RunCycle(ctx)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return nil
	}

	if s.deps.TerminateOnReportFailure && verifier.IsUnrecoverableDelivery(err) {
		return fmt.Errorf("%w: %w", ErrReportUndelivered, err)
	}

	logger.ErrorKV(ctx, "Control cycle failed", "cycle_id", report.CycleID, "error", err)

	return nil
}
