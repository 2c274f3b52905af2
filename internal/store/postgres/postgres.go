// Package postgres provides the PostgreSQL-backed Store.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/relaylabs/chatrelay/internal/model"
	"github.com/relaylabs/chatrelay/internal/store"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// Store persists users and histories in PostgreSQL. Histories are stored
// as a JSONB turn list, one row per user; SELECT ... FOR UPDATE on that
// row serializes concurrent appends per user.
type Store struct {
	pool *pgxpool.Pool
}

// New initializes a connection pool and applies pending migrations.
func New(dsn string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, display_name, created_at FROM users WHERE user_id = $1`, id,
	).Scan(&u.ID, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// FindUserByName returns the user with the given display name.
func (s *Store) FindUserByName(ctx context.Context, displayName string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, display_name, created_at FROM users WHERE display_name = $1`, displayName,
	).Scan(&u.ID, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

// CreateUserWithHistory creates the user and its empty history in one
// transaction, so both rows exist or neither does.
func (s *Store) CreateUserWithHistory(ctx context.Context, user *model.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO users (user_id, display_name, created_at) VALUES ($1, $2, $3)`,
		user.ID, user.DisplayName, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (user_id, history) VALUES ($1, '[]'::jsonb)`,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadHistory returns the stored turns for a user in chronological order.
// A missing conversation row reads as an empty history.
func (s *Store) LoadHistory(ctx context.Context, userID string) ([]model.Turn, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT history FROM conversations WHERE user_id = $1`, userID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []model.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var turns []model.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return turns, nil
}

// AppendTurn appends one turn and truncates to the most recent MaxTurns
// entries. The row lock taken by FOR UPDATE serializes concurrent appends
// for the same user without blocking other users.
func (s *Store) AppendTurn(ctx context.Context, userID string, turn model.Turn) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`, userID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}

	var turns []model.Turn
	var raw []byte
	err = tx.QueryRow(ctx,
		`SELECT history FROM conversations WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Conversation row missing for an existing user; the upsert
		// below recreates it.
	case err != nil:
		return fmt.Errorf("failed to lock history: %w", err)
	default:
		if err := json.Unmarshal(raw, &turns); err != nil {
			return fmt.Errorf("failed to decode history: %w", err)
		}
	}

	turns = append(turns, turn)
	if len(turns) > store.MaxTurns {
		turns = turns[len(turns)-store.MaxTurns:]
	}

	encoded, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (user_id, history) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET history = EXCLUDED.history`,
		userID, encoded,
	)
	if err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
