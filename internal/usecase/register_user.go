package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/repository"
)

// RegisterUser は新規ユーザーを登録する。
type RegisterUser struct {
	uow    repository.UnitOfWorkFactory
	hasher Hasher
}

// NewRegisterUser はRegisterUserを生成する。
func NewRegisterUser(uow repository.UnitOfWorkFactory, hasher Hasher) *RegisterUser {
	return &RegisterUser{uow: uow, hasher: hasher}
}

// Execute は入力を検証し、ログイン名が未使用であればユーザーを作成する。
// 入力検証は永続化層へのアクセスより前に行う。
func (uc *RegisterUser) Execute(ctx context.Context, input RegisterUserInput) (*RegisterUserOutput, error) {
	if !IsValidLogin(input.Login) {
		return nil, model.NewLoginRequirementError()
	}
	if !IsStrongPassword(input.Password) {
		return nil, model.NewPasswordRequirementError()
	}

	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing, err := tx.Users().FindByLogin(ctx, input.Login)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewUserAlreadyExistsError()
	}

	hash, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.NewUser(input.Login, hash)
	if err := tx.Users().Save(ctx, user); err != nil {
		// 同じログイン名での同時登録
		if errors.Is(err, model.ErrDuplicateKey) {
			return nil, model.NewUserAlreadyExistsError()
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("login", user.Login),
	)

	return &RegisterUserOutput{Login: user.Login, PasswordHash: user.PasswordHash}, nil
}
