package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/repository"
)

// AddUserLocation はユーザーの保存済み地点に地点を追加する。
// 座標に対応する地点がカタログに無ければ作成する。
type AddUserLocation struct {
	uow       repository.UnitOfWorkFactory
	sessions  repository.SessionStore
	sanitizer NameSanitizer
}

// NewAddUserLocation はAddUserLocationを生成する。
// sanitizerがnilの場合、地点名はそのまま保存される。
func NewAddUserLocation(uow repository.UnitOfWorkFactory, sessions repository.SessionStore, sanitizer NameSanitizer) *AddUserLocation {
	return &AddUserLocation{uow: uow, sessions: sessions, sanitizer: sanitizer}
}

// Execute はセッションのユーザーに地点を追加する。
// 既に保持している地点の場合はUSER_LOCATIONのエラーを返す。
func (uc *AddUserLocation) Execute(ctx context.Context, sessionID string, input LocationInput) error {
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

	location, err := uc.findOrCreateLocation(ctx, tx.Locations(), input)
	if err != nil {
		return err
	}

	if err := user.AddLocation(*location); err != nil {
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

	slog.Info("location added",
		slog.String("user_id", user.ID),
		slog.String("location_id", location.ID),
	)
	return nil
}

// findOrCreateLocation は座標でカタログを検索し、無ければ新しい地点を作成する。
func (uc *AddUserLocation) findOrCreateLocation(ctx context.Context, locations repository.LocationGateway, input LocationInput) (*model.Location, error) {
	location, err := locations.FindByCoordinates(ctx, input.Coordinates)
	if err != nil {
		return nil, err
	}
	if location != nil {
		return location, nil
	}

	name := input.Name
	if uc.sanitizer != nil {
		name = uc.sanitizer.SanitizeName(name)
	}
	if strings.TrimSpace(name) == "" {
		return nil, model.NewInvalidRequestError("location name is empty")
	}

	created := model.NewLocation(name, input.Coordinates)
	err = locations.Save(ctx, created)
	if err == nil {
		return &created, nil
	}
	if !errors.Is(err, model.ErrDuplicateKey) {
		return nil, err
	}

	// 別リクエストが同じ座標の地点を先に作成した
	location, err = locations.FindByCoordinates(ctx, input.Coordinates)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, fmt.Errorf("location %s vanished after duplicate insert", input.Coordinates)
	}
	return location, nil
}
