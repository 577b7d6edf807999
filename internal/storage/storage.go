// Package storage persists accounts and their pantries in sqlite for the
// reference server.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountExists      = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("account not found")
)

// Account is a registered user.
type Account struct {
	ID         string
	Username   string
	Email      string
	ClientType string
	CreatedAt  time.Time
}

// AccountStore reads and writes the users and pantry_items tables.
type AccountStore struct {
	db *sql.DB
}

// NewAccountStore wraps an already migrated database.
func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

// Create registers a new account. Usernames and emails share one namespace,
// unique ignoring case, so a login string always names at most one account.
func (s *AccountStore) Create(ctx context.Context, username, email, password, clientType string) (Account, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users
		 WHERE username = ? COLLATE NOCASE OR email = ? COLLATE NOCASE
		    OR username = ? COLLATE NOCASE OR email = ? COLLATE NOCASE`,
		username, username, email, email).Scan(&exists)
	if err != nil {
		return Account{}, fmt.Errorf("failed to check existing accounts: %w", err)
	}
	if exists > 0 {
		return Account{}, ErrAccountExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	acc := Account{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      email,
		ClientType: clientType,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, client_type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.Username, acc.Email, string(hash), acc.ClientType, acc.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return Account{}, ErrAccountExists
		}
		return Account{}, fmt.Errorf("failed to insert account: %w", err)
	}
	return acc, nil
}

// Authenticate checks a password for the account named by username or email.
func (s *AccountStore) Authenticate(ctx context.Context, login, password string) (Account, error) {
	var acc Account
	var hash, created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, client_type, created_at FROM users
		 WHERE username = ? COLLATE NOCASE OR email = ? COLLATE NOCASE LIMIT 1`,
		login, login).Scan(&acc.ID, &acc.Username, &acc.Email, &hash, &acc.ClientType, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	acc.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return acc, nil
}

// Get loads an account by id.
func (s *AccountStore) Get(ctx context.Context, id string) (Account, error) {
	var acc Account
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, client_type, created_at FROM users WHERE id = ?`, id).
		Scan(&acc.ID, &acc.Username, &acc.Email, &acc.ClientType, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	acc.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return acc, nil
}

// Pantry returns the user's items in insertion order.
func (s *AccountStore) Pantry(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM pantry_items WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pantry: %w", err)
	}
	defer rows.Close()

	items := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan pantry item: %w", err)
		}
		items = append(items, name)
	}
	return items, rows.Err()
}

// SetPantry replaces the user's items.
func (s *AccountStore) SetPantry(ctx context.Context, userID string, items []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pantry_items WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear pantry: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pantry_items (user_id, position, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, name := range items {
		if _, err := stmt.ExecContext(ctx, userID, i, name); err != nil {
			return fmt.Errorf("failed to insert pantry item %q: %w", name, err)
		}
	}
	return tx.Commit()
}
