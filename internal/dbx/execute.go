package dbx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/elnafo/internal/common"
)

// Leaser hands out dedicated connections from a bounded pool.
// *sql.DB implements it.
type Leaser interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Execute leases one connection, runs fn with it on a separate goroutine
// and waits for either the result or ctx. Errors are classified as:
//
//   - common.ErrConnectionExhausted when no connection could be leased,
//   - common.ErrExecutionFailed when fn panicked,
//   - common.ErrQueryFailed for any error fn returned (the cause stays
//     reachable through errors.Is/As).
//
// If ctx ends first Execute returns ctx.Err() at once; the worker runs to
// completion and returns the connection itself.
func Execute(ctx context.Context, db Leaser, fn func(ctx context.Context, conn DBTX) error) error {
	return execute(ctx, db, func(ctx context.Context, conn *sql.Conn) error {
		return fn(ctx, conn)
	})
}

// ExecuteTx is Execute with fn wrapped in a transaction on the leased
// connection.
func ExecuteTx(ctx context.Context, db Leaser, fn func(ctx context.Context, tx DBTX) error) error {
	return execute(ctx, db, func(ctx context.Context, conn *sql.Conn) error {
		return WithTx(ctx, conn, nil, fn)
	})
}

func execute(ctx context.Context, db Leaser, fn func(ctx context.Context, conn *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrConnectionExhausted, err)
	}

	done := make(chan error, 1)
	go func() {
		defer conn.Close()
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("%w: %v", common.ErrExecutionFailed, p)
			}
		}()

		if err := fn(ctx, conn); err != nil {
			done <- fmt.Errorf("%w: %w", common.ErrQueryFailed, err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
