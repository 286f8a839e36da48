package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/repository"
)

// RemoveUserLocation はユーザーの保存済み地点から地点を削除する。
// 地点の特定には座標のみを使う。カタログ上の地点自体は削除しない。
type RemoveUserLocation struct {
	uow      repository.UnitOfWorkFactory
	sessions repository.SessionStore
}

// NewRemoveUserLocation はRemoveUserLocationを生成する。
func NewRemoveUserLocation(uow repository.UnitOfWorkFactory, sessions repository.SessionStore) *RemoveUserLocation {
	return &RemoveUserLocation{uow: uow, sessions: sessions}
}

// Execute はセッションのユーザーから地点を削除する。
func (uc *RemoveUserLocation) Execute(ctx context.Context, sessionID string, input LocationInput) error {
	userID, err := resolveUserID(ctx, uc.sessions, sessionID)
	if err != nil {
		return err
	}

	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	user, err := loadUser(ctx, tx.Users(), userID)
	if err != nil {
		return err
	}

	location, err := tx.Locations().FindByCoordinates(ctx, input.Coordinates)
	if err != nil {
		return err
	}
	if location == nil {
		return model.NewLocationNotFoundError(input.Coordinates)
	}

	if err := user.RemoveLocation(*location); err != nil {
		var domainErr *model.DomainError
		if errors.As(err, &domainErr) {
			return model.NewUserLocationError(domainErr)
		}
		return err
	}

	if err := tx.Users().Save(ctx, user); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("location removed",
		slog.String("user_id", user.ID),
		slog.String("location_id", location.ID),
	)
	return nil
}
