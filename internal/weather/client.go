// Package weather はOpenWeather APIとの連携機能を提供する。
// 地名による地点検索と、座標による現在の天気の取得を行う。
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ratmeow/weather-tracker/internal/metrics"
	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/usecase"
)

const (
	// DefaultSearchURL はOpenWeatherのジオコーディングAPIのエンドポイント。
	DefaultSearchURL = "https://api.openweathermap.org/geo/1.0/direct"
	// DefaultWeatherURL はOpenWeatherの現在の天気APIのエンドポイント。
	DefaultWeatherURL = "https://api.openweathermap.org/data/2.5/weather"
	// DefaultSearchLimit は地点検索で返す候補の最大数。
	DefaultSearchLimit = 5
	// DefaultMaxResponseSize はレスポンスボディの最大サイズ（1MiB）。
	DefaultMaxResponseSize = 1 << 20
)

// Config はOpenWeatherクライアントの設定。
type Config struct {
	APIKey          string
	SearchURL       string
	WeatherURL      string
	SearchLimit     int
	MaxResponseSize int64
}

func (c Config) withDefaults() Config {
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.WeatherURL == "" {
		c.WeatherURL = DefaultWeatherURL
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = DefaultMaxResponseSize
	}
	return c
}

// Client はOpenWeather APIのクライアント。
// 失敗の原因はログに記録し、呼び出し元にはWEATHER_PROVIDER_ERRORのみを返す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	config     Config
}

// NewClient はClientの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, cfg Config) *Client {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		config:     cfg.withDefaults(),
	}
}

// searchItem はジオコーディングAPIのレスポンス要素。
type searchItem struct {
	Name    string          `json:"name"`
	Lat     decimal.Decimal `json:"lat"`
	Lon     decimal.Decimal `json:"lon"`
	Country *string         `json:"country"`
	State   *string         `json:"state"`
}

// weatherResponse は現在の天気APIのレスポンスのうち利用する項目。
type weatherResponse struct {
	Sys struct {
		Country *string `json:"country"`
	} `json:"sys"`
	Weather []struct {
		Main *string `json:"main"`
	} `json:"weather"`
	Main struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
}

// SearchLocation は地名で地点候補を検索する。
func (c *Client) SearchLocation(ctx context.Context, name string) ([]model.LocationCandidate, error) {
	params := url.Values{}
	params.Set("q", name)
	params.Set("appid", c.config.APIKey)
	params.Set("limit", fmt.Sprintf("%d", c.config.SearchLimit))

	var items []searchItem
	if err := c.get(ctx, metrics.OperationSearch, c.config.SearchURL, params, &items); err != nil {
		c.logger.Error("地点検索に失敗しました",
			slog.String("location_name", name),
			slog.String("error", err.Error()),
		)
		return nil, model.NewWeatherProviderError()
	}

	candidates := make([]model.LocationCandidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, model.LocationCandidate{
			Name:        item.Name,
			Coordinates: model.NewCoordinates(item.Lat, item.Lon),
			Country:     item.Country,
			State:       item.State,
		})
	}
	return candidates, nil
}

// GetWeather は地点の現在の天気を取得する。
// レスポンスに含まれない項目はnilのまま返す。
func (c *Client) GetWeather(ctx context.Context, location model.Location) (*model.LocationWeather, error) {
	params := url.Values{}
	params.Set("lat", location.Coordinates.Latitude().String())
	params.Set("lon", location.Coordinates.Longitude().String())
	params.Set("units", "metric")
	params.Set("appid", c.config.APIKey)

	var resp weatherResponse
	if err := c.get(ctx, metrics.OperationWeather, c.config.WeatherURL, params, &resp); err != nil {
		c.logger.Error("天気の取得に失敗しました",
			slog.String("location_id", location.ID),
			slog.String("coordinates", location.Coordinates.String()),
			slog.String("error", err.Error()),
		)
		return nil, model.NewWeatherProviderError()
	}

	weather := &model.LocationWeather{
		Name:             location.Name,
		Coordinates:      location.Coordinates,
		Country:          resp.Sys.Country,
		Temperature:      resp.Main.Temp,
		TemperatureFeels: resp.Main.FeelsLike,
		WindSpeed:        resp.Wind.Speed,
		Humidity:         resp.Main.Humidity,
	}
	if len(resp.Weather) > 0 {
		weather.MainState = resp.Weather[0].Main
	}
	return weather, nil
}

// get はGETリクエストを実行し、JSONレスポンスをdstにデコードする。
// 返すエラーにAPIキーを含めない。
func (c *Client) get(ctx context.Context, operation, endpoint string, params url.Values, dst any) error {
	start := time.Now()
	err := c.doGet(ctx, endpoint, params, dst)
	c.metrics.RecordProviderLatency(operation, time.Since(start))
	c.metrics.RecordProviderRequest(operation, err == nil)
	return err
}

func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values, dst any) error {
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "WeatherTracker/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.ErrorのURLにはappidが含まれる
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("HTTPリクエストに失敗しました: %w", urlErr.Err)
		}
		return fmt.Errorf("HTTPリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.RecordProviderStatus(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("OpenWeather APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if int64(len(body)) > c.config.MaxResponseSize {
		return fmt.Errorf("レスポンスボディが上限 %d バイトを超えています", c.config.MaxResponseSize)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ usecase.WeatherClient = (*Client)(nil)
