// Package journal stores every emitted routine and belly-up event in an
// append-only SQL table.
//
// The Store runs on database/sql with either the pure-Go SQLite driver
// ("sqlite") or the pgx PostgreSQL driver ("pgx"). It implements the event
// sink interface, so it can be fanned out next to the log sink.
package journal
