package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/elnafo/internal/common"
)

type failingLeaser struct{ err error }

func (f failingLeaser) Conn(context.Context) (*sql.Conn, error) { return nil, f.err }

func TestExecute_Success(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	var n int
	err := Execute(context.Background(), db, func(ctx context.Context, conn DBTX) error {
		return conn.QueryRowContext(ctx, `SELECT 1`).Scan(&n)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_LeaseFailure(t *testing.T) {
	called := false
	err := Execute(context.Background(), failingLeaser{err: errors.New("pool closed")}, func(context.Context, DBTX) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, common.ErrConnectionExhausted)
	assert.False(t, called)
}

func TestExecute_QueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	cause := errors.New("relation does not exist")
	mock.ExpectExec(`DELETE`).WillReturnError(cause)

	err := Execute(context.Background(), db, func(ctx context.Context, conn DBTX) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM users`)
		return err
	})

	assert.ErrorIs(t, err, common.ErrQueryFailed)
	assert.ErrorIs(t, err, cause)
}

func TestExecute_DomainErrorStaysVisible(t *testing.T) {
	db, _ := newMockDB(t)

	err := Execute(context.Background(), db, func(context.Context, DBTX) error {
		return common.ErrExists
	})

	assert.ErrorIs(t, err, common.ErrExists)
	assert.ErrorIs(t, err, common.ErrQueryFailed)
}

func TestExecute_Panic(t *testing.T) {
	db, _ := newMockDB(t)

	err := Execute(context.Background(), db, func(context.Context, DBTX) error {
		panic("driver bug")
	})

	assert.ErrorIs(t, err, common.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "driver bug")
}

func TestExecute_ReturnsOnCancelAndReleasesLease(t *testing.T) {
	db, _ := newMockDB(t)
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- Execute(ctx, db, func(context.Context, DBTX) error {
			close(started)
			<-release
			defer close(finished)
			return nil
		})
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return after cancellation")
	}

	close(release)
	<-finished

	// The single connection must come back to the pool once the worker is done.
	leaseCtx, leaseCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer leaseCancel()
	conn, err := db.Conn(leaseCtx)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestExecuteTx_CommitsOnLeasedConn(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := ExecuteTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `UPDATE users SET avatar = ''`)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
