package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/dbx"
	"github.com/dmitrijs2005/elnafo/internal/server/models"
)

const selectUser = `SELECT id, login, name, email, hashed_password, is_admin, avatar, created_at FROM users`

type PostgresRepository struct {
	db dbx.Leaser
}

func NewPostgresRepository(db dbx.Leaser) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Login, &u.Name, &u.Email, &u.HashedPassword, &u.IsAdmin, &u.Avatar, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepository) Find(ctx context.Context, q Query) (*models.User, error) {
	var user *models.User

	err := dbx.Execute(ctx, r.db, func(ctx context.Context, conn dbx.DBTX) error {
		u, err := scanUser(conn.QueryRowContext(ctx, selectUser+" WHERE "+q.where+" LIMIT 1", q.args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// createLockKey names the advisory lock that serializes user inserts.
const createLockKey int64 = 0x656c6e61666f

// Create inserts the user. The administrator flag is decided inside the
// statement: only an insert into an empty table sets it. Inserts hold a
// transaction-level advisory lock, so the statement's snapshot always sees
// every earlier committed user and at most one user becomes administrator.
func (r *PostgresRepository) Create(ctx context.Context, nu *models.NewUser) (*models.User, error) {
	query :=
		`INSERT INTO users (id, login, name, email, hashed_password, is_admin)
		 VALUES ($1, $2, $3, $4, $5, NOT EXISTS (SELECT 1 FROM users))
		 RETURNING is_admin, avatar, created_at`

	id := nu.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	user := &models.User{
		ID:             id,
		Login:          nu.Login,
		Name:           nu.Name,
		Email:          nu.Email,
		HashedPassword: nu.HashedPassword,
	}

	err := dbx.ExecuteTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, createLockKey); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, query, user.ID, user.Login, user.Name, user.Email, user.HashedPassword).
			Scan(&user.IsAdmin, &user.Avatar, &user.CreatedAt)
	})
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return nil, &ConflictError{Field: field}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Remove(ctx context.Context, id uuid.UUID) error {
	var affected int64

	err := dbx.Execute(ctx, r.db, func(ctx context.Context, conn dbx.DBTX) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("remove user: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	var list []*models.User

	err := dbx.Execute(ctx, r.db, func(ctx context.Context, conn dbx.DBTX) error {
		rows, err := conn.QueryContext(ctx, selectUser+" ORDER BY created_at, login")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			list = append(list, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

// UpdateAvatar swaps the avatar key in one transaction and returns the
// key it replaced.
func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) (string, error) {
	var previous string
	found := true

	err := dbx.ExecuteTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		err := tx.QueryRowContext(ctx, `SELECT avatar FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET avatar = $2 WHERE id = $1`, id, avatar)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("update avatar: %w", err)
	}
	if !found {
		return "", common.ErrNotFound
	}
	return previous, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	var affected int64

	err := dbx.Execute(ctx, r.db, func(ctx context.Context, conn dbx.DBTX) error {
		res, err := conn.ExecContext(ctx, `UPDATE users SET hashed_password = $2 WHERE id = $1`, id, hashedPassword)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
