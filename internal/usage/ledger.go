// Package usage enforces the optional per-subject daily restoration quota.
package usage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"photorestore/internal/domain"
	"photorestore/internal/infra"
	"photorestore/internal/sqlinline"
)

// DayFormat is the calendar day key, always in UTC.
const DayFormat = "2006-01-02"

// Ledger stores daily counts in restore_usage_daily.
type Ledger struct {
	sql infra.SQLExecutor
}

func NewLedger(sql infra.SQLExecutor) *Ledger {
	return &Ledger{sql: sql}
}

func (l *Ledger) DailyCount(ctx context.Context, subject, day string) (int, error) {
	var n int
	if err := l.sql.QueryRow(ctx, sqlinline.QSelectDailyRestoreCount, subject, day).Scan(&n); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("usage: daily count: %w", err)
	}
	return n, nil
}

// Reserve takes one slot for the day unless limit is already reached.
func (l *Ledger) Reserve(ctx context.Context, subject, day string, limit int) (int, bool, error) {
	var n int
	if err := l.sql.QueryRow(ctx, sqlinline.QReserveDailyRestore, subject, day, limit).Scan(&n); err != nil {
		if infra.IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("usage: reserve: %w", err)
	}
	return n, true, nil
}

// Release gives back a slot taken by Reserve. The count never drops below zero.
func (l *Ledger) Release(ctx context.Context, subject, day string) error {
	if _, err := l.sql.Exec(ctx, sqlinline.QReleaseDailyRestore, subject, day); err != nil {
		return fmt.Errorf("usage: release: %w", err)
	}
	return nil
}

// Reset clears the subject's count for day and reports whether a row existed.
func (l *Ledger) Reset(ctx context.Context, subject, day string) (bool, error) {
	tag, err := l.sql.Exec(ctx, sqlinline.QResetDailyRestoreCount, subject, day)
	if err != nil {
		return false, fmt.Errorf("usage: reset: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ domain.UsageRepository = (*Ledger)(nil)

// Quota gates restorations on the subject's count for the current UTC day.
// Slots are reserved up front so concurrent requests cannot overrun the limit.
// A nil Quota, a nil repository or a non-positive limit disables it.
type Quota struct {
	repo   domain.UsageRepository
	limit  int
	logger *infra.Logger
	now    func() time.Time
}

func NewQuota(repo domain.UsageRepository, limit int, logger *infra.Logger) *Quota {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Quota{repo: repo, limit: limit, logger: logger, now: time.Now}
}

func (q *Quota) Enabled() bool {
	return q != nil && q.repo != nil && q.limit > 0
}

func (q *Quota) today() string {
	return q.now().UTC().Format(DayFormat)
}

// Reserve takes one of the subject's slots for today, or returns
// domain.ErrQuotaExceeded when none is left. A disabled quota returns a nil
// Reservation, which is safe to use.
func (q *Quota) Reserve(ctx context.Context, subject string) (*Reservation, error) {
	if !q.Enabled() {
		return nil, nil
	}
	day := q.today()
	n, ok, err := q.repo.Reserve(ctx, subject, day, q.limit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: all %d restorations used", domain.ErrQuotaExceeded, q.limit)
	}
	q.logger.Debug().Str("subject", subject).Int("count", n).Int("limit", q.limit).Msg("usage: restoration reserved")
	return &Reservation{quota: q, subject: subject, day: day}, nil
}

// Reservation is one quota slot held for an in-flight restoration. It is kept
// by Commit or handed back by Release; whichever comes first wins.
type Reservation struct {
	quota   *Quota
	subject string
	day     string
	done    atomic.Bool
}

func (r *Reservation) Commit() {
	if r != nil {
		r.done.Store(true)
	}
}

// Release returns the slot unless it was committed. Failures are logged, not
// returned.
func (r *Reservation) Release(ctx context.Context) {
	if r == nil || !r.done.CompareAndSwap(false, true) {
		return
	}
	if err := r.quota.repo.Release(ctx, r.subject, r.day); err != nil {
		r.quota.logger.Error().Err(err).Str("subject", r.subject).Msg("usage: failed to release reservation")
		return
	}
	r.quota.logger.Debug().Str("subject", r.subject).Msg("usage: reservation released")
}
