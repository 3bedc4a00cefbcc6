package repository

import (
	"context"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// SQLite serializes writers; short lock-contention bursts surface as busy
// errors even with a busy_timeout pragma, e.g. when a transaction cannot be
// upgraded. Writes retry within this budget before the error is surfaced.
const busyRetryBudget = 5 * time.Second

func withBusyRetry(op func() error) error {
	backoff := retry.WithMaxDuration(busyRetryBudget, retry.NewFibonacci(50*time.Millisecond))
	return retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		err := op()
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
