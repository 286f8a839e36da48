package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/repository"
)

// validSessionID はセッションIDが正規形のUUID文字列かどうかを返す。
func validSessionID(sessionID string) bool {
	if len(sessionID) != 36 {
		return false
	}
	_, err := uuid.Parse(sessionID)
	return err == nil
}

// resolveUserID はセッションIDをユーザーIDに解決する。
// 形式が不正なIDはストアに問い合わせずSESSION_NOT_FOUNDとする。
func resolveUserID(ctx context.Context, sessions repository.SessionStore, sessionID string) (string, error) {
	if !validSessionID(sessionID) {
		return "", model.NewSessionNotFoundError()
	}
	return sessions.GetUserID(ctx, sessionID)
}

// loadUser はユーザーを保存済み地点付きで読み込む。
func loadUser(ctx context.Context, users repository.UserGateway, userID string) (*model.User, error) {
	user, err := users.FindByID(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundByIDError(userID)
	}
	return user, nil
}
