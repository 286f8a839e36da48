package usecase

import (
	"context"

	"github.com/ratmeow/weather-tracker/internal/model"
)

// SearchLocation は地名で地点候補を検索する。永続化は行わない。
type SearchLocation struct {
	weather WeatherClient
}

// NewSearchLocation はSearchLocationを生成する。
func NewSearchLocation(weather WeatherClient) *SearchLocation {
	return &SearchLocation{weather: weather}
}

// Execute は天気プロバイダーの検索結果をそのまま返す。
func (uc *SearchLocation) Execute(ctx context.Context, locationName string) ([]model.LocationCandidate, error) {
	return uc.weather.SearchLocation(ctx, locationName)
}
