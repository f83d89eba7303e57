// Package sink provides the alarm/log channel implementations the controller emits events to:
// the process logger, a bounded in-memory recorder, a Redis event stream and combinators
// that fan events out or make delivery best-effort.
package sink
