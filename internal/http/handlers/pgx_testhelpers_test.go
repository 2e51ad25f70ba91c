package handlers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// countSQL keeps one in-memory daily count. Reservations succeed while the
// count is below the limit argument; any Exec is treated as a release.
type countSQL struct {
	n       int
	queries []string
}

func (c *countSQL) Exec(_ context.Context, query string, _ ...any) (pgconn.CommandTag, error) {
	c.queries = append(c.queries, query)
	if c.n > 0 {
		c.n--
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (c *countSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	c.queries = append(c.queries, query)
	if len(args) == 3 {
		limit, _ := args[2].(int)
		if c.n >= limit {
			return simpleRow{}
		}
		c.n++
	}
	return simpleRow{scan: func(dest ...any) error {
		ptr, ok := dest[0].(*int)
		if !ok {
			return errors.New("invalid dest")
		}
		*ptr = c.n
		return nil
	}}
}

func (c *countSQL) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("query not supported")
}
