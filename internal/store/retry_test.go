package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/abhisek/rounds/internal/apperr"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"plain", errors.New("syntax error"), false},
		{"conflict sentinel", ErrSnapshotConflict, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := withRetry(ctx, "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return driver.ErrBadConn
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}

	calls = 0
	err = withRetry(ctx, "op", func(context.Context) error {
		calls++
		return driver.ErrBadConn
	})
	if !apperr.IsTransient(err) {
		t.Fatalf("exhausted retries should be TransientIOError, got %v", err)
	}
	if calls != retryAttempts {
		t.Errorf("calls = %d, want %d", calls, retryAttempts)
	}

	calls = 0
	err = withRetry(ctx, "op", func(context.Context) error {
		calls++
		return ErrSnapshotConflict
	})
	if !errors.Is(err, ErrSnapshotConflict) || calls != 1 {
		t.Errorf("non-transient errors pass through unretried: err=%v calls=%d", err, calls)
	}
}
