package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by all backends. Callers match with errors.Is.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate indicates a unique constraint violation (e.g. email already taken)
	ErrDuplicate = errors.New("duplicate record")
)

// User represents an account in the user directory
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Never expose the credential hash
	IsActive       bool      `json:"is_active"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// Item represents a single owner-scoped item
type Item struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemUpdate is a partial update: nil fields are left unchanged. The
// description is cleared to NULL when DescriptionSet is true and
// Description is nil.
type ItemUpdate struct {
	Title          *string
	Description    *string
	DescriptionSet bool
	IsCompleted    *bool
}

// Store is the persistence interface for users and items
type Store interface {
	// InitSchema creates tables and indexes if they do not exist
	InitSchema(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*User, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	// DeleteUser removes the user and all owned items in one transaction
	DeleteUser(ctx context.Context, id int64) error

	// Item operations
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id int64) (*Item, error)
	// ListItems returns the user's items in insertion order
	ListItems(ctx context.Context, userID int64, offset, limit int) ([]*Item, error)
	UpdateItem(ctx context.Context, id int64, update ItemUpdate) (*Item, error)
	DeleteItem(ctx context.Context, id int64) error

	// Health checks
	HealthCheck(ctx context.Context) error
	Close() error
}

// Config for storage backends
type Config struct {
	Driver string // "sqlite" or "postgres"

	// SQLite config
	SQLitePath string

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Driver:           "sqlite",
		SQLitePath:       "taskhub.db",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
	}
}
