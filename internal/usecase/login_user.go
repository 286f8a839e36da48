package usecase

import (
	"context"
	"log/slog"

	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/repository"
)

// LoginUser はログイン名とパスワードを検証してセッションを発行する。
type LoginUser struct {
	uow      repository.UnitOfWorkFactory
	hasher   Hasher
	sessions repository.SessionStore
}

// NewLoginUser はLoginUserを生成する。
func NewLoginUser(uow repository.UnitOfWorkFactory, hasher Hasher, sessions repository.SessionStore) *LoginUser {
	return &LoginUser{uow: uow, hasher: hasher, sessions: sessions}
}

// Execute はユーザーを認証し、新しいセッションを返す。
// 既存のセッションは無効化しない。
func (uc *LoginUser) Execute(ctx context.Context, input LoginUserInput) (*model.Session, error) {
	user, err := uc.findUser(ctx, input.Login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundByLoginError(input.Login)
	}

	if !uc.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, model.NewWrongPasswordError()
	}

	session, err := uc.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, nil
}

func (uc *LoginUser) findUser(ctx context.Context, login string) (*model.User, error) {
	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	return tx.Users().FindByLogin(ctx, login)
}
