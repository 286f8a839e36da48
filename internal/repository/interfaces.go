// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"
	"database/sql"

	"github.com/ratmeow/weather-tracker/internal/model"
)

// UserGateway はユーザーデータの永続化インターフェース。
type UserGateway interface {
	// FindByLogin はログイン名でユーザーを取得する。見つからない場合はnilを返す。
	// 保存済み地点は読み込まない。
	FindByLogin(ctx context.Context, login string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	// loadLocationsがtrueの場合は保存済み地点も読み込む。
	FindByID(ctx context.Context, id string, loadLocations bool) (*model.User, error)

	// Save はユーザーを保存する。未登録のユーザーは作成し、
	// 保存済み地点は永続化済みの関連と差分で突き合わせる。
	// ログイン名が既に使われている場合はmodel.ErrDuplicateKeyを返す。
	Save(ctx context.Context, user *model.User) error
}

// LocationGateway は地点カタログの永続化インターフェース。
type LocationGateway interface {
	// FindByCoordinates は座標が一致する地点を取得する。見つからない場合はnilを返す。
	FindByCoordinates(ctx context.Context, coordinates model.Coordinates) (*model.Location, error)

	// Save は地点を作成する。
	// 同一座標の地点が既に存在する場合はmodel.ErrDuplicateKeyを返す。
	Save(ctx context.Context, location model.Location) error
}

// UnitOfWork は1リクエスト分の永続化操作をまとめる。
// Commitされなかった変更はRollbackで破棄される。Commit後のRollbackは何もしない。
type UnitOfWork interface {
	Users() UserGateway
	Locations() LocationGateway
	Commit() error
	Rollback() error
}

// UnitOfWorkFactory はUnitOfWorkを開始する。
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// SessionStore はログインセッションの保存先インターフェース。
// 有効期限の管理はストア自身が行う。
type SessionStore interface {
	// Create は新しいセッションを発行する。
	Create(ctx context.Context, userID string) (*model.Session, error)

	// GetUserID はセッションに紐づくユーザーIDを返す。
	// 存在しないか期限切れの場合はSESSION_NOT_FOUNDのAPIErrorを返す。
	GetUserID(ctx context.Context, sessionID string) (string, error)

	// Delete はセッションを削除する。存在しなくてもエラーにしない。
	Delete(ctx context.Context, sessionID string) error
}

// DBTX は*sql.DBと*sql.Txの共通部分。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
