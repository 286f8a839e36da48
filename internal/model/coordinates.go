// Package model はドメインモデルを定義する。
package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Coordinates は緯度・経度の組を表す不変の値オブジェクト。
// 一意性判定で誤差が出ないよう、浮動小数点ではなく10進数で保持する。
type Coordinates struct {
	latitude  decimal.Decimal
	longitude decimal.Decimal
}

// NewCoordinates はCoordinatesを生成する。
func NewCoordinates(latitude, longitude decimal.Decimal) Coordinates {
	return Coordinates{latitude: latitude, longitude: longitude}
}

// ParseCoordinates は文字列表現の緯度・経度からCoordinatesを生成する。
func ParseCoordinates(latitude, longitude string) (Coordinates, error) {
	lat, err := decimal.NewFromString(latitude)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude %q: %w", latitude, err)
	}
	lon, err := decimal.NewFromString(longitude)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude %q: %w", longitude, err)
	}
	return NewCoordinates(lat, lon), nil
}

// Latitude は緯度を返す。
func (c Coordinates) Latitude() decimal.Decimal {
	return c.latitude
}

// Longitude は経度を返す。
func (c Coordinates) Longitude() decimal.Decimal {
	return c.longitude
}

// Equal は緯度・経度の両方が値として等しい場合にtrueを返す。
// 55.75 と 55.750 は等しいとみなす。
func (c Coordinates) Equal(other Coordinates) bool {
	return c.latitude.Equal(other.latitude) && c.longitude.Equal(other.longitude)
}

// String は "(lat, lon)" 形式の文字列を返す。
func (c Coordinates) String() string {
	return fmt.Sprintf("(%s, %s)", c.latitude.String(), c.longitude.String())
}
