package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/visora/internal/config"
	"github.com/your-org/visora/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	return NewPostgresStoreFromDSN(cfg.DSN(), cfg.MaxConns)
}

func NewPostgresStoreFromDSN(dsn string, maxConns int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Sessions ---

// UpsertSession creates or refreshes a session row.
func (s *PostgresStore) UpsertSession(ctx context.Context, sess *models.Session) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, user_id, session_token, is_active, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   user_id = EXCLUDED.user_id,
		   session_token = EXCLUDED.session_token,
		   is_active = EXCLUDED.is_active,
		   updated_at = NOW()
		 RETURNING updated_at`,
		sess.ID, sess.UserID, sess.SessionToken, sess.IsActive,
	).Scan(&sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// GetSession returns nil when the session does not exist.
func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess := &models.Session{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, session_token, is_active, updated_at FROM sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.SessionToken, &sess.IsActive, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// --- Camera states ---

// GetCameraState returns nil when the session has no recorded state.
func (s *PostgresStore) GetCameraState(ctx context.Context, sessionID uuid.UUID) (*models.CameraState, error) {
	st := &models.CameraState{}
	var camType string
	err := s.pool.QueryRow(ctx,
		`SELECT session_id, is_enabled, camera_type, updated_at FROM camera_states WHERE session_id = $1`, sessionID,
	).Scan(&st.SessionID, &st.IsEnabled, &camType, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get camera state: %w", err)
	}
	st.CameraType = models.CameraType(camType)
	return st, nil
}

// UpsertCameraState writes the state, provisioning the session row if it is missing.
func (s *PostgresStore) UpsertCameraState(ctx context.Context, st *models.CameraState) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin camera state tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, is_active) VALUES ($1, TRUE) ON CONFLICT (id) DO NOTHING`,
		st.SessionID); err != nil {
		return fmt.Errorf("provision session: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO camera_states (session_id, is_enabled, camera_type, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (session_id) DO UPDATE SET
		   is_enabled = EXCLUDED.is_enabled,
		   camera_type = EXCLUDED.camera_type,
		   updated_at = NOW()
		 RETURNING updated_at`,
		st.SessionID, st.IsEnabled, string(st.CameraType),
	).Scan(&st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert camera state: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit camera state: %w", err)
	}
	return nil
}
