package usecase

import (
	"context"
	"log/slog"

	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/repository"
)

// LogoutUser はセッションを破棄する。
type LogoutUser struct {
	sessions repository.SessionStore
}

// NewLogoutUser はLogoutUserを生成する。
func NewLogoutUser(sessions repository.SessionStore) *LogoutUser {
	return &LogoutUser{sessions: sessions}
}

// Execute はセッションを削除する。存在しないセッションの削除はエラーにしない。
func (uc *LogoutUser) Execute(ctx context.Context, sessionID string) error {
	if !validSessionID(sessionID) {
		return model.NewSessionNotFoundError()
	}
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}
