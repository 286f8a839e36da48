package handler

import (
	"encoding/json"
	"io"
	"math"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ratmeow/weather-tracker/internal/model"
)

// maxRequestBodySize はJSONリクエストボディの最大サイズ。
const maxRequestBodySize = 64 << 10

// locationResponse は地点検索結果のレスポンス。
// 座標は精度を保つため文字列で返す。
type locationResponse struct {
	Name      string          `json:"name"`
	Latitude  decimal.Decimal `json:"latitude"`
	Longitude decimal.Decimal `json:"longitude"`
	Country   *string         `json:"country"`
	State     *string         `json:"state"`
}

// weatherResponse は保存済み地点の天気のレスポンス。
// 数値は小数点以下を切り捨てた整数で返す。
type weatherResponse struct {
	Name             string          `json:"name"`
	Latitude         decimal.Decimal `json:"latitude"`
	Longitude        decimal.Decimal `json:"longitude"`
	Country          *string         `json:"country"`
	State            *string         `json:"state"`
	Temperature      *int            `json:"temperature"`
	MainState        *string         `json:"mainState"`
	WindSpeed        *int            `json:"windSpeed"`
	TemperatureFeels *int            `json:"temperatureFeels"`
	Humidity         *int            `json:"humidity"`
}

func toLocationResponse(c model.LocationCandidate) locationResponse {
	return locationResponse{
		Name:      c.Name,
		Latitude:  c.Coordinates.Latitude(),
		Longitude: c.Coordinates.Longitude(),
		Country:   c.Country,
		State:     c.State,
	}
}

func toWeatherResponse(w model.LocationWeather) weatherResponse {
	return weatherResponse{
		Name:             w.Name,
		Latitude:         w.Coordinates.Latitude(),
		Longitude:        w.Coordinates.Longitude(),
		Country:          w.Country,
		Temperature:      truncate(w.Temperature),
		MainState:        w.MainState,
		WindSpeed:        truncate(w.WindSpeed),
		TemperatureFeels: truncate(w.TemperatureFeels),
		Humidity:         truncate(w.Humidity),
	}
}

// truncate は値を0方向に切り捨てる。nilや有限でない値はnilにする。
func truncate(v *float64) *int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	n := int(math.Trunc(*v))
	return &n
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをdstにデコードする。
// 失敗時はINVALID_REQUESTのAPIErrorを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return model.NewInvalidRequestError("request body is empty")
		}
		return model.NewInvalidRequestError("request body is not valid JSON")
	}
	return nil
}
