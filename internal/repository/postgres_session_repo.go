package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ratmeow/weather-tracker/internal/model"
)

// PostgresSessionRepo はPostgreSQLのsessionsテーブルにセッションを保持するストア。
// 期限切れの行は参照時に除外し、削除はクリーンアップワーカーが行う。
type PostgresSessionRepo struct {
	db     DBTX
	config SessionStoreConfig
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db DBTX, config SessionStoreConfig) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db, config: config}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, userID string) (*model.Session, error) {
	ctx, cancel := r.config.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(r.config.TTL),
		CreatedAt: now,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to create session",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewSessionStoreError()
	}
	return session, nil
}

// GetUserID はセッションに紐づくユーザーIDを返す。期限切れのセッションは存在しないものとして扱う。
func (r *PostgresSessionRepo) GetUserID(ctx context.Context, sessionID string) (string, error) {
	ctx, cancel := r.config.withTimeout(ctx)
	defer cancel()

	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM sessions WHERE id = $1 AND expires_at > now()`,
		sessionID,
	).Scan(&userID)

	if errors.Is(err, sql.ErrNoRows) {
		return "", model.NewSessionNotFoundError()
	}
	if err != nil {
		slog.Error("failed to find session",
			slog.String("error", err.Error()),
		)
		return "", model.NewSessionStoreError()
	}
	return userID, nil
}

// Delete は指定IDのセッションを削除する。
func (r *PostgresSessionRepo) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := r.config.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		sessionID,
	)
	if err != nil {
		slog.Error("failed to delete session",
			slog.String("error", err.Error()),
		)
		return model.NewSessionStoreError()
	}
	return nil
}

// compile-time interface check
var _ SessionStore = (*PostgresSessionRepo)(nil)
