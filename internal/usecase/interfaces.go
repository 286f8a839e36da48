// Package usecase はユーザー操作ごとのアプリケーションロジックを提供する。
package usecase

import (
	"context"

	"github.com/ratmeow/weather-tracker/internal/model"
)

// Hasher はパスワードハッシュの生成と検証を行う。
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// WeatherClient は外部の天気プロバイダーへのアクセスを抽象化する。
// 失敗時はWEATHER_PROVIDER_ERRORのAPIErrorを返す。
type WeatherClient interface {
	// SearchLocation は地名で地点候補を検索する。
	SearchLocation(ctx context.Context, name string) ([]model.LocationCandidate, error)
	// GetWeather は地点の現在の天気を取得する。
	GetWeather(ctx context.Context, location model.Location) (*model.LocationWeather, error)
}

// NameSanitizer は地点名からマークアップを取り除く。
type NameSanitizer interface {
	SanitizeName(name string) string
}
