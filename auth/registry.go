package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// Registry is the flat user registry variant: users are rows in a local
// SQLite database, ids are assigned sequentially, and the session token is
// the user id itself. It exists for local and demo deployments without an
// identity provider.
type Registry struct {
	db *sql.DB
}

// NewRegistry opens (and if needed initializes) the registry database.
func NewRegistry(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT ''
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init registry schema: %w", err)
	}
	return &Registry{db: db}, nil
}

// Login validates a user id. The registry has no secrets; the secret
// argument is ignored and the token is the id.
func (r *Registry) Login(ctx context.Context, identifier, _ string) (string, error) {
	if _, err := r.lookup(ctx, identifier); err != nil {
		return "", err
	}
	return identifier, nil
}

// Register creates a new user with the next sequential id (USER001,
// USER002, ...).
func (r *Registry) Register(ctx context.Context, name, email, _ string) (Identity, error) {
	if name == "" {
		return Identity{}, fmt.Errorf("name is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("begin registration: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return Identity{}, fmt.Errorf("count users: %w", err)
	}

	id := fmt.Sprintf("USER%03d", count+1)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`, id, name, email); err != nil {
		return Identity{}, fmt.Errorf("insert user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Identity{}, fmt.Errorf("commit registration: %w", err)
	}

	log.Printf("[AUTH] Registered user %s", id)
	return Identity{ID: id, Name: name, Email: email}, nil
}

// Validate resolves a token (the user id) to an identity.
func (r *Registry) Validate(ctx context.Context, token string) (Identity, error) {
	id, err := r.lookup(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return Identity{}, ErrInvalidSession
	}
	return id, err
}

// Logout is a no-op: the registry issues no real sessions.
func (r *Registry) Logout(ctx context.Context, token string) error {
	return nil
}

// Close releases the database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) lookup(ctx context.Context, userID string) (Identity, error) {
	var id Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = ?`, userID).
		Scan(&id.ID, &id.Name, &id.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	return id, nil
}
