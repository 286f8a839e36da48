// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	domainMsgLocationAlreadyHeld = "User already has this Location"
	domainMsgLocationNotHeld     = "Location Not Found"
)

// User はサービス利用ユーザーを表す。
// 保存済み地点のコレクションはAddLocation/RemoveLocationでのみ変更できる。
type User struct {
	ID           string
	Login        string
	PasswordHash string

	locations []Location
}

// NewUser は新しい識別子を割り当ててUserを生成する。
func NewUser(login, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Login:        login,
		PasswordHash: passwordHash,
	}
}

// RestoreUser は永続化済みの状態からUserを復元する。
func RestoreUser(id, login, passwordHash string, locations []Location) *User {
	u := &User{
		ID:           id,
		Login:        login,
		PasswordHash: passwordHash,
	}
	if len(locations) > 0 {
		u.locations = append([]Location(nil), locations...)
	}
	return u
}

// AddLocation は地点を保存済みコレクションに追加する。
// 既に保持している地点の場合はDomainErrorを返す。
func (u *User) AddLocation(location Location) error {
	if u.indexOf(location) >= 0 {
		return NewDomainError(domainMsgLocationAlreadyHeld)
	}
	u.locations = append(u.locations, location)
	return nil
}

// RemoveLocation は地点を保存済みコレクションから削除する。
// 保持していない地点の場合はDomainErrorを返す。
func (u *User) RemoveLocation(location Location) error {
	i := u.indexOf(location)
	if i < 0 {
		return NewDomainError(domainMsgLocationNotHeld)
	}
	u.locations = append(u.locations[:i:i], u.locations[i+1:]...)
	return nil
}

// Locations は保存済み地点のスナップショットを返す。
// 返されたスライスを変更してもUserには影響しない。
func (u *User) Locations() []Location {
	out := make([]Location, len(u.locations))
	copy(out, u.locations)
	return out
}

// LocationIDs は保存済み地点の識別子集合を返す。
func (u *User) LocationIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(u.locations))
	for _, loc := range u.locations {
		ids[loc.ID] = struct{}{}
	}
	return ids
}

// Equal は識別子が一致する場合にtrueを返す。
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.ID == other.ID
}

func (u *User) indexOf(location Location) int {
	for i, held := range u.locations {
		if held.Equal(location) {
			return i
		}
	}
	return -1
}

// Session はユーザーのログインセッションを表す。
// 有効期限の管理はセッションストア側が行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
