package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor defines the contract required by stores for executing SQL queries.
// *pgxpool.Pool satisfies it.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

var markerRegexp = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

// ErrSQLMarker is returned for queries without a leading "--sql <uuid>" line.
var ErrSQLMarker = errors.New("sql marker missing or invalid")

// DefaultSlowQuery is the latency above which SQLRunner warns.
const DefaultSlowQuery = 250 * time.Millisecond

// SQLRunner executes marker-tagged inline queries and logs each call by
// marker rather than by SQL text.
type SQLRunner struct {
	db     SQLExecutor
	logger zerolog.Logger
	slow   time.Duration
	now    func() time.Time
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return newSQLRunner(pool, logger)
}

func newSQLRunner(db SQLExecutor, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{db: db, logger: logger, slow: DefaultSlowQuery, now: time.Now}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := r.now()
	tag, err := r.db.Exec(ctx, trimmed, args...)
	r.observe(marker, "exec", start, err)
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return loggingRow{row: r.db.QueryRow(ctx, trimmed, args...), runner: r, marker: marker, start: r.now()}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	start := r.now()
	rows, err := r.db.Query(ctx, trimmed, args...)
	if err != nil {
		r.observe(marker, "query", start, err)
		return nil, err
	}
	return loggingRows{Rows: rows, runner: r, marker: marker, start: start}, nil
}

func (r *SQLRunner) observe(marker, op string, start time.Time, err error) {
	took := r.now().Sub(start)
	var event *zerolog.Event
	switch {
	case err != nil && !IsNoRows(err):
		event = r.logger.Error().Err(err)
	case took > r.slow:
		event = r.logger.Warn()
	default:
		event = r.logger.Debug()
	}
	event.Str("sql", marker).Str("op", op).Dur("took", took).Msg("sql")
}

// loggingRow defers the log line to Scan, where pgx reports the query error.
type loggingRow struct {
	row    pgx.Row
	runner *SQLRunner
	marker string
	start  time.Time
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	l.runner.observe(l.marker, "query_row", l.start, err)
	return err
}

type loggingRows struct {
	pgx.Rows
	runner *SQLRunner
	marker string
	start  time.Time
}

func (l loggingRows) Close() {
	l.Rows.Close()
	l.runner.observe(l.marker, "query", l.start, l.Rows.Err())
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	first, rest, _ := strings.Cut(trimmed, "\n")
	m := markerRegexp.FindStringSubmatch(strings.TrimSpace(first))
	if m == nil {
		return "", "", ErrSQLMarker
	}
	return m[1], strings.TrimSpace(rest), nil
}

// IsNoRows reports whether err signals an empty single-row result.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var _ SQLExecutor = (*SQLRunner)(nil)
