package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"math/rand/v2"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/abhisek/rounds/internal/apperr"
)

const (
	retryAttempts = 4
	retryBase     = 25 * time.Millisecond
	retryMax      = 500 * time.Millisecond
)

// IsTransient reports whether err is a driver failure worth retrying:
// SQLite busy/locked, a dropped connection, or a Postgres error that pgconn
// marks safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	if pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// withRetry runs fn, retrying transient failures with exponential backoff.
// Exhausted retries surface as *apperr.TransientIOError.
func withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := range retryAttempts {
		err = fn(ctx)
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == retryAttempts-1 {
			break
		}

		wait := retryBase << attempt
		if wait > retryMax {
			wait = retryMax
		}
		// ±20% jitter.
		wait += time.Duration(float64(wait) * 0.2 * (2*rand.Float64() - 1))

		select {
		case <-ctx.Done():
			return apperr.Transient(op, ctx.Err())
		case <-time.After(wait):
		}
	}
	return apperr.Transient(op, err)
}
