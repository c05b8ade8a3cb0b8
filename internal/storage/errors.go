package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"wizqueue/internal/services"
)

const (
	sqliteBusyCode       = 5
	sqliteConstraintCode = 19
	busyRetryAttempts    = 5
	busyRetryBaseDelay   = 10 * time.Millisecond
	busyRetryMaxDelay    = 200 * time.Millisecond
)

// IsConstraint reports whether err is a store-level integrity violation
// (CHECK, NOT NULL, UNIQUE, FOREIGN KEY).
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == sqliteConstraintCode
	}
	return strings.Contains(err.Error(), "constraint failed")
}

// classify tags integrity violations with services.ErrConstraint.
func classify(err error) error {
	if err == nil || errors.Is(err, services.ErrConstraint) {
		return err
	}
	if IsConstraint(err) {
		return services.Wrap(services.ErrConstraint, "storage", "", "", err)
	}
	return err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	ctx = ensureContext(ctx)
	delay := busyRetryBaseDelay
	var err error
	for attempt := 1; attempt <= busyRetryAttempts; attempt++ {
		err = op()
		if err == nil || !isSQLiteBusy(err) || attempt == busyRetryAttempts {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, busyRetryMaxDelay)
	}
	return err
}
