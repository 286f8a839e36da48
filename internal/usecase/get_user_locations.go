package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/repository"
)

// GetUserLocations はユーザーの保存済み地点ごとの現在の天気を返す。
type GetUserLocations struct {
	uow         repository.UnitOfWorkFactory
	sessions    repository.SessionStore
	weather     WeatherClient
	concurrency int
}

// NewGetUserLocations はGetUserLocationsを生成する。
// concurrencyは天気取得の同時実行数で、1以下なら地点ごとに順番に取得する。
func NewGetUserLocations(uow repository.UnitOfWorkFactory, sessions repository.SessionStore, weather WeatherClient, concurrency int) *GetUserLocations {
	if concurrency < 1 {
		concurrency = 1
	}
	return &GetUserLocations{uow: uow, sessions: sessions, weather: weather, concurrency: concurrency}
}

// Execute は保存済み地点の順序を保ったまま天気を取得する。
// いずれかの地点で取得に失敗した場合は全体を失敗とする。
func (uc *GetUserLocations) Execute(ctx context.Context, sessionID string) ([]model.LocationWeather, error) {
	userID, err := resolveUserID(ctx, uc.sessions, sessionID)
	if err != nil {
		return nil, err
	}

	locations, err := uc.savedLocations(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.LocationWeather, len(locations))
	if uc.concurrency == 1 {
		for i, loc := range locations {
			weather, err := uc.weather.GetWeather(ctx, loc)
			if err != nil {
				return nil, err
			}
			out[i] = *weather
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, loc := range locations {
		g.Go(func() error {
			weather, err := uc.weather.GetWeather(gctx, loc)
			if err != nil {
				return err
			}
			out[i] = *weather
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// savedLocations はユーザーの保存済み地点を読み込む。トランザクションは天気取得の前に閉じる。
func (uc *GetUserLocations) savedLocations(ctx context.Context, userID string) ([]model.Location, error) {
	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user, err := loadUser(ctx, tx.Users(), userID)
	if err != nil {
		return nil, err
	}
	return user.Locations(), nil
}
