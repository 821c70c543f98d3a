package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"travelguide.io/guestbook/internal/domain"
)

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps windows in the rate_windows table.
// Expired rows are removed by the rate window cleanup job.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, identity string, kind domain.ActionKind) (*domain.RateWindow, error) {
	w := domain.RateWindow{Identity: identity, ActionKind: kind}
	err := s.db.QueryRow(ctx,
		`SELECT window_start, admitted FROM rate_windows WHERE identity = $1 AND action_kind = $2`,
		identity, string(kind),
	).Scan(&w.WindowStart, &w.Count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select rate window: %w", err)
	}
	w.WindowStart = w.WindowStart.UTC()
	return &w, nil
}

func (s *PostgresStore) Put(ctx context.Context, w domain.RateWindow, expiresAt time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rate_windows (identity, action_kind, window_start, admitted, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity, action_kind) DO UPDATE
		SET window_start = EXCLUDED.window_start,
		    admitted = EXCLUDED.admitted,
		    expires_at = EXCLUDED.expires_at`,
		w.Identity, string(w.ActionKind), w.WindowStart, w.Count, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert rate window: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, identity string, kind domain.ActionKind) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM rate_windows WHERE identity = $1 AND action_kind = $2`,
		identity, string(kind),
	); err != nil {
		return fmt.Errorf("delete rate window: %w", err)
	}
	return nil
}

// DeleteExpired removes windows that ended before cutoff and returns how many were removed.
func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM rate_windows WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired rate windows: %w", err)
	}
	return tag.RowsAffected(), nil
}
