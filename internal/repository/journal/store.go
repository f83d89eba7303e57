package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	// Register the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Register the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

const (
	// DriverSQLite is the pure-Go SQLite driver name.
	DriverSQLite = "sqlite"
	// DriverPostgres is the pgx stdlib driver name.
	DriverPostgres = "pgx"

	// defaultPingTimeout bounds the connectivity check performed by Open.
	defaultPingTimeout = 5 * time.Second
	// defaultListLimit caps List when no limit is given.
	defaultListLimit = 100
)

var (
	// ErrUnsupportedDriver is returned for drivers other than DriverSQLite and DriverPostgres.
	ErrUnsupportedDriver = errors.New("unsupported journal driver")
	// errEmptyDSN is returned when no data source is configured.
	errEmptyDSN = errors.New("journal DSN is empty")
)

// Entry is one stored event.
type Entry struct {
	// ID is the row identifier, increasing in insertion order.
	ID int64
	// Event is the stored event.
	Event voltvar.Event
}

// Store is an append-only SQL journal of events.
type Store struct {
	// db is the underlying connection pool.
	db *sql.DB
	// driver selects the placeholder dialect.
	driver string
}

// Open connects to the journal database and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if strings.TrimSpace(dsn) == "" {
		return nil, errEmptyDSN
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection also keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping journal: %w", err)
	}

	s := &Store{
		db:     db,
		driver: driver,
	}

	if err = s.initSchema(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialise journal schema: %w", err)
	}

	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates the events table.
func (s *Store) initSchema(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	schema := `
	CREATE TABLE IF NOT EXISTS lvc_events (
		id ` + idColumn + `,
		cycle_id TEXT NOT NULL,
		substation_id TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	const index = `CREATE INDEX IF NOT EXISTS idx_lvc_events_substation ON lvc_events (substation_id, id)`

	_, err := s.db.ExecContext(ctx, index)

	return err
}

// Emit appends the event to the journal.
func (s *Store) Emit(ctx context.Context, event voltvar.Event) error {
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := s.rebind(`
		INSERT INTO lvc_events (cycle_id, substation_id, severity, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		event.CycleID,
		event.SubstationID,
		event.Severity.String(),
		event.Message,
		timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append journal event: %w", err)
	}

	return nil
}

// List returns up to limit most recent entries in insertion order.
// An empty substationID lists every substation.
func (s *Store) List(ctx context.Context, substationID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		query = `SELECT id, cycle_id, substation_id, severity, message, created_at FROM lvc_events`
		args  []any
	)

	if substationID != "" {
		query += ` WHERE substation_id = ?`

		args = append(args, substationID)
	}

	query += ` ORDER BY id DESC LIMIT ?`

	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var entries []Entry

	for rows.Next() {
		var (
			entry    Entry
			severity string
			created  int64
		)

		err = rows.Scan(
			&entry.ID,
			&entry.Event.CycleID,
			&entry.Event.SubstationID,
			&severity,
			&entry.Event.Message,
			&created,
		)
		if err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}

		entry.Event.Severity, _ = voltvar.ParseSeverity(severity)
		entry.Event.Timestamp = time.Unix(0, created)
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}

	// Rows were read newest first.
	slices.Reverse(entries)

	return entries, nil
}

// Recent returns the newest events of every substation, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]voltvar.Event, error) {
	entries, err := s.List(ctx, "", limit)
	if err != nil {
		return nil, err
	}

	events := make([]voltvar.Event, 0, len(entries))
	for _, entry := range entries {
		events = append(events, entry.Event)
	}

	return events, nil
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)

			continue
		}

		n++

		b.WriteString("$")
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}
