// Package model はドメインモデルを定義する。
package model

import "github.com/google/uuid"

// Location は全ユーザーで共有される地点カタログの1件を表す。
// 同一座標は検索名に関わらず1レコードに対応する（latitude, longitudeの一意制約）。
type Location struct {
	ID          string
	Name        string
	Coordinates Coordinates
}

// NewLocation は新しい識別子を割り当ててLocationを生成する。
func NewLocation(name string, coordinates Coordinates) Location {
	return Location{
		ID:          uuid.New().String(),
		Name:        name,
		Coordinates: coordinates,
	}
}

// Equal は識別子が一致する場合にtrueを返す。名前や座標は比較しない。
func (l Location) Equal(other Location) bool {
	return l.ID == other.ID
}
