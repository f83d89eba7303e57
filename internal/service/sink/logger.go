package sink

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/lvc/internal/domain/voltvar"
	"github.com/oshokin/lvc/internal/logger"
)

// bellyUpPrefix marks unrecoverable reports in the process log.
const bellyUpPrefix = "Belly up "

// Logger writes routine events at info level and belly-up events at error level.
type Logger struct {
	// bellyUp is pinned to the error level so the global level cannot suppress it.
	bellyUp *zap.SugaredLogger
}

// NewLogger creates a logger sink on top of base.
// A nil base selects the global logger.
func NewLogger(base *zap.SugaredLogger) *Logger {
	if base == nil {
		base = logger.Logger()
	}

	return &Logger{
		bellyUp: base.WithOptions(logger.WithLevel(zapcore.ErrorLevel)).Named("belly-up"),
	}
}

// Emit implements Emitter. Logging never fails.
func (l *Logger) Emit(ctx context.Context, event voltvar.Event) error {
	kvs := []any{
		"substation", event.SubstationID,
	}

	if event.CycleID != "" {
		kvs = append(kvs, "cycle", event.CycleID)
	}

	if event.Severity == voltvar.SeverityUnrecoverable {
		l.bellyUp.Errorw(bellyUpPrefix+event.Message, kvs...)

		return nil
	}

	logger.InfoKV(ctx, event.Message, kvs...)

	return nil
}
