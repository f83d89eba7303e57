package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/lvc/internal/domain/voltvar"
	"github.com/oshokin/lvc/internal/logger"
)

var errTestEmit = errors.New("test emit error")

// failingEmitter always rejects events.
type failingEmitter struct{}

// Emit implements Emitter.
func (failingEmitter) Emit(context.Context, voltvar.Event) error {
	return errTestEmit
}

// TestRecorder_Ring checks ordering before and after the ring wraps.
func TestRecorder_Ring(t *testing.T) {
	t.Parallel()

	r := NewRecorder(3)
	require.Empty(t, r.Events())

	for i := range 2 {
		require.NoError(t, r.Emit(context.Background(), voltvar.Routine("SUB1", fmt.Sprint(i))))
	}

	require.Equal(t, []string{"0", "1"}, messages(r.Events()))

	for i := 2; i < 5; i++ {
		require.NoError(t, r.Emit(context.Background(), voltvar.Routine("SUB1", fmt.Sprint(i))))
	}

	require.Equal(t, []string{"2", "3", "4"}, messages(r.Events()))
	require.Len(t, NewRecorder(0).ring, DefaultRecorderCapacity)

	recent, err := r.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, []string{"3", "4"}, messages(recent))

	recent, err = r.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, []string{"2", "3", "4"}, messages(recent))
}

// TestFanout_DeliversToAll ensures a failing emitter does not block the others.
func TestFanout_DeliversToAll(t *testing.T) {
	t.Parallel()

	first, last := NewRecorder(4), NewRecorder(4)
	fan := Fanout{first, failingEmitter{}, last}

	err := fan.Emit(context.Background(), voltvar.Unrecoverable("SUB1", "tie"))
	require.ErrorIs(t, err, errTestEmit)
	require.Len(t, first.Events(), 1)
	require.Len(t, last.Events(), 1)

	require.NoError(t, Fanout{first}.Emit(context.Background(), voltvar.Routine("SUB1", "ok")))
}

// TestBestEffort_SwallowsErrors checks that failures are logged, not returned.
func TestBestEffort_SwallowsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := logger.ToContext(context.Background(), logger.NewWithWriter(&buf, zapcore.DebugLevel))

	err := BestEffort("redis", failingEmitter{}).Emit(ctx, voltvar.Routine("SUB1", "x"))
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Best-effort sink dropped event")
	require.Contains(t, buf.String(), "redis")
}

// TestWithCycle stamps only events without a cycle ID.
func TestWithCycle(t *testing.T) {
	t.Parallel()

	r := NewRecorder(4)
	stamped := WithCycle("cycle-1", r)

	require.NoError(t, stamped.Emit(context.Background(), voltvar.Routine("SUB1", "a")))

	event := voltvar.Routine("SUB1", "b")
	event.CycleID = "cycle-0"
	require.NoError(t, stamped.Emit(context.Background(), event))

	events := r.Events()
	require.Equal(t, "cycle-1", events[0].CycleID)
	require.Equal(t, "cycle-0", events[1].CycleID)
}

// TestLogger_Channels checks routine and belly-up formatting and that belly-up survives a high global level.
func TestLogger_Channels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := logger.NewWithWriter(&buf, zapcore.FatalLevel)
	ctx := logger.ToContext(context.Background(), logger.NewWithWriter(&buf, zapcore.InfoLevel))
	sink := NewLogger(base)

	event := voltvar.Routine("SUB1", "Control Failed TX4 LTC4 RaiseTap 10.05")
	event.CycleID = "c1"
	require.NoError(t, sink.Emit(ctx, event))
	require.NoError(t, sink.Emit(ctx, voltvar.Unrecoverable("SUB2", "undefined bits set or SUB2 = prog_stat")))

	out := buf.String()
	require.Contains(t, out, "Control Failed TX4 LTC4 RaiseTap 10.05")
	require.Contains(t, out, "Belly up undefined bits set or SUB2 = prog_stat")
	require.Contains(t, out, "ERROR")
	require.Equal(t, 2, strings.Count(out, "\n"))
}

// TestRedis_Emit runs against a real Redis when LVC_TEST_REDIS_ADDR is set.
func TestRedis_Emit(t *testing.T) {
	t.Parallel()

	addr := os.Getenv("LVC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LVC_TEST_REDIS_ADDR is not set")
	}

	ctx := context.Background()

	client, err := DialRedis(ctx, addr, os.Getenv("LVC_TEST_REDIS_PASSWORD"))
	require.NoError(t, err)

	prefix := fmt.Sprintf("lvc-test:%d", time.Now().UnixNano())
	sink := NewRedis(client, prefix)

	defer func() {
		_ = client.Del(ctx, sink.ListKey(voltvar.SeverityUnrecoverable)).Err()
		_ = sink.Close()
	}()

	require.NoError(t, sink.Emit(ctx, voltvar.Unrecoverable("SUB1", "tie open")))

	items, err := client.LRange(ctx, sink.ListKey(voltvar.SeverityUnrecoverable), 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Contains(t, items[0], `"message":"tie open"`)
	require.Contains(t, items[0], `"severity":"belly-up"`)
}

// TestDialRedis_EmptyAddr rejects a blank address without dialing.
func TestDialRedis_EmptyAddr(t *testing.T) {
	t.Parallel()

	_, err := DialRedis(context.Background(), "  ", "")
	require.ErrorIs(t, err, errEmptyRedisAddr)
}

// messages extracts event messages.
func messages(events []voltvar.Event) []string {
	result := make([]string, 0, len(events))
	for _, e := range events {
		result = append(result, e.Message)
	}

	return result
}
