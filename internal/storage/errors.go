package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUnavailable marks failures to reach the database at all.
	ErrUnavailable = errors.New("database unavailable")
	// ErrWrite marks statements the database rejected or failed to execute.
	ErrWrite = errors.New("database write failed")
)

// classify wraps err with ErrUnavailable when it stems from connectivity,
// and with ErrWrite otherwise.
func classify(op string, err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
