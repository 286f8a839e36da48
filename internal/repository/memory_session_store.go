package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ratmeow/weather-tracker/internal/model"
)

// MemorySessionStore はプロセス内メモリにセッションを保持するストア。
// 期限切れのセッションは参照時に存在しないものとして扱う。
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore はMemorySessionStoreを生成する。
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]model.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock は現在時刻の取得関数を差し替える。
func (s *MemorySessionStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Create はセッションを発行する。
func (s *MemorySessionStore) Create(ctx context.Context, userID string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session := model.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	s.sessions[session.ID] = session
	return &session, nil
}

// GetUserID はセッションに紐づくユーザーIDを返す。
func (s *MemorySessionStore) GetUserID(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return "", model.NewSessionNotFoundError()
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, sessionID)
		return "", model.NewSessionNotFoundError()
	}
	return session.UserID, nil
}

// Delete はセッションを削除する。
func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// compile-time interface check
var _ SessionStore = (*MemorySessionStore)(nil)
