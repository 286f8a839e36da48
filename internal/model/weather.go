// Package model はドメインモデルを定義する。
package model

// LocationCandidate は天気プロバイダーの地点検索で得られた候補を表す。
// 永続化はされない。
type LocationCandidate struct {
	Name        string
	Coordinates Coordinates
	Country     *string
	State       *string
}

// LocationWeather は保存済み地点の現在の天気を表す。
// プロバイダーが値を返さなかった項目はnilになる。
type LocationWeather struct {
	Name             string
	Coordinates      Coordinates
	Country          *string
	MainState        *string
	Temperature      *float64
	TemperatureFeels *float64
	WindSpeed        *float64
	Humidity         *float64
}
