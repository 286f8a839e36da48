package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ratmeow/weather-tracker/internal/model"
)

const redisSessionKeyPrefix = "session:"

// NewRedisClient はredis:// 形式のURLまたは host:port からRedisクライアントを生成する。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisSessionStore はRedisにセッションを保持するストア。
// 有効期限はキーのTTLで管理する。
type RedisSessionStore struct {
	client redis.Cmdable
	config SessionStoreConfig
}

// NewRedisSessionStore はRedisSessionStoreを生成する。
func NewRedisSessionStore(client redis.Cmdable, config SessionStoreConfig) *RedisSessionStore {
	return &RedisSessionStore{client: client, config: config}
}

func redisSessionKey(sessionID string) string {
	return redisSessionKeyPrefix + sessionID
}

// Create はセッションIDを発行し、TTL付きでユーザーIDを保存する。
func (s *RedisSessionStore) Create(ctx context.Context, userID string) (*model.Session, error) {
	ctx, cancel := s.config.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.config.TTL),
		CreatedAt: now,
	}

	if err := s.client.Set(ctx, redisSessionKey(session.ID), userID, s.config.TTL).Err(); err != nil {
		slog.Error("セッションの保存に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewSessionStoreError()
	}
	return session, nil
}

// GetUserID はセッションに紐づくユーザーIDを返す。
func (s *RedisSessionStore) GetUserID(ctx context.Context, sessionID string) (string, error) {
	ctx, cancel := s.config.withTimeout(ctx)
	defer cancel()

	userID, err := s.client.Get(ctx, redisSessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.NewSessionNotFoundError()
	}
	if err != nil {
		slog.Error("セッションの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return "", model.NewSessionStoreError()
	}
	return userID, nil
}

// Delete はセッションを削除する。存在しないキーの削除はエラーにしない。
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := s.config.withTimeout(ctx)
	defer cancel()

	if err := s.client.Del(ctx, redisSessionKey(sessionID)).Err(); err != nil {
		slog.Error("セッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.NewSessionStoreError()
	}
	return nil
}

// compile-time interface check
var _ SessionStore = (*RedisSessionStore)(nil)
