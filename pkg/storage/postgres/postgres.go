// Package postgres implements storage.Store on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/taskhub/taskhub/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	hashed_password VARCHAR(255) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS items (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title VARCHAR(200) NOT NULL,
	description TEXT,
	is_completed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_items_user_id ON items(user_id);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// PostgresStorage implements storage.Store using PostgreSQL
type PostgresStorage struct {
	db *sql.DB
}

// New connects to PostgreSQL and configures the connection pool
func New(cfg storage.Config) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetMaxIdleConns(cfg.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStorage{db: db}, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// InitSchema creates the tables and indexes if they do not already exist
func (s *PostgresStorage) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func (s *PostgresStorage) CreateUser(ctx context.Context, user *storage.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, hashed_password, is_active, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, user.Email, user.HashedPassword, user.IsActive, user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	return s.getUser(ctx, "email = $1", email)
}

func (s *PostgresStorage) GetUserByID(ctx context.Context, id int64) (*storage.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *PostgresStorage) getUser(ctx context.Context, where string, arg interface{}) (*storage.User, error) {
	user := &storage.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, hashed_password, is_active, is_admin, created_at
		FROM users WHERE `+where, arg,
	).Scan(&user.ID, &user.Email, &user.HashedPassword, &user.IsActive, &user.IsAdmin, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *PostgresStorage) ListUsers(ctx context.Context, offset, limit int) ([]*storage.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, hashed_password, is_active, is_admin, created_at
		FROM users ORDER BY id LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*storage.User, 0)
	for rows.Next() {
		user := &storage.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.HashedPassword, &user.IsActive, &user.IsAdmin, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStorage) SetUserActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteUser removes the user and all owned items in a single transaction.
// The cascade is explicit so both backends behave identically.
func (s *PostgresStorage) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user items: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return tx.Commit()
}

func (s *PostgresStorage) CreateItem(ctx context.Context, item *storage.Item) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO items (user_id, title, description, is_completed)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, item.UserID, item.Title, item.Description, item.IsCompleted,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetItem(ctx context.Context, id int64) (*storage.Item, error) {
	item := &storage.Item{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, is_completed, created_at, updated_at
		FROM items WHERE id = $1
	`, id).Scan(&item.ID, &item.UserID, &item.Title, &item.Description, &item.IsCompleted, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *PostgresStorage) ListItems(ctx context.Context, userID int64, offset, limit int) ([]*storage.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, is_completed, created_at, updated_at
		FROM items WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]*storage.Item, 0)
	for rows.Next() {
		item := &storage.Item{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Description, &item.IsCompleted, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStorage) UpdateItem(ctx context.Context, id int64, update storage.ItemUpdate) (*storage.Item, error) {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if update.Title != nil {
		sets = append(sets, "title = "+arg(*update.Title))
	}
	if update.DescriptionSet {
		sets = append(sets, "description = "+arg(update.Description))
	}
	if update.IsCompleted != nil {
		sets = append(sets, "is_completed = "+arg(*update.IsCompleted))
	}
	sets = append(sets, "updated_at = NOW()")

	query := "UPDATE items SET " + strings.Join(sets, ", ") +
		" WHERE id = " + arg(id) +
		" RETURNING id, user_id, title, description, is_completed, created_at, updated_at"

	item := &storage.Item{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&item.ID, &item.UserID, &item.Title, &item.Description, &item.IsCompleted, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

func (s *PostgresStorage) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
