// Package sqlite implements storage.Store on an embedded SQLite database.
// It is the default backend, suitable for development and single-node
// deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/taskhub/taskhub/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	is_admin INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	description TEXT,
	is_completed INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_user_id ON items(user_id);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

// SQLiteStorage implements storage.Store using mattn/go-sqlite3
type SQLiteStorage struct {
	db *sql.DB
}

// New opens (creating if necessary) the SQLite database at path.
// Use ":memory:" for an in-memory database in tests.
func New(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite permits a single writer; one pooled connection avoids
	// SQLITE_BUSY under concurrent requests and keeps :memory: databases
	// on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// InitSchema creates the tables and indexes if they do not already exist
func (s *SQLiteStorage) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, user *storage.User) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, hashed_password, is_active, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.Email, user.HashedPassword, user.IsActive, user.IsAdmin, now)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *SQLiteStorage) GetUserByID(ctx context.Context, id int64) (*storage.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *SQLiteStorage) getUser(ctx context.Context, where string, arg interface{}) (*storage.User, error) {
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

func (s *SQLiteStorage) ListUsers(ctx context.Context, offset, limit int) ([]*storage.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, hashed_password, is_active, is_admin, created_at
		FROM users ORDER BY id LIMIT ? OFFSET ?
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

func (s *SQLiteStorage) SetUserActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id)
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
// The items table declares ON DELETE CASCADE, but the cascade is performed
// explicitly so the behavior does not depend on PRAGMA foreign_keys.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete user items: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
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

func (s *SQLiteStorage) CreateItem(ctx context.Context, item *storage.Item) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO items (user_id, title, description, is_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, item.UserID, item.Title, item.Description, item.IsCompleted, now, now)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read item id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) GetItem(ctx context.Context, id int64) (*storage.Item, error) {
	item := &storage.Item{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, is_completed, created_at, updated_at
		FROM items WHERE id = ?
	`, id).Scan(&item.ID, &item.UserID, &item.Title, &item.Description, &item.IsCompleted, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStorage) ListItems(ctx context.Context, userID int64, offset, limit int) ([]*storage.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, is_completed, created_at, updated_at
		FROM items WHERE user_id = ? ORDER BY id LIMIT ? OFFSET ?
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

func (s *SQLiteStorage) UpdateItem(ctx context.Context, id int64, update storage.ItemUpdate) (*storage.Item, error) {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)

	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.DescriptionSet {
		sets = append(sets, "description = ?")
		args = append(args, update.Description)
	}
	if update.IsCompleted != nil {
		sets = append(sets, "is_completed = ?")
		args = append(args, *update.IsCompleted)
	}

	// An empty update still bumps updated_at, matching PUT semantics
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, storage.ErrNotFound
	}

	return s.GetItem(ctx, id)
}

func (s *SQLiteStorage) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
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

func (s *SQLiteStorage) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
