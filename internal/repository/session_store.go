package repository

import (
	"context"
	"time"
)

// SessionStoreConfig はセッションストアの共通設定。
type SessionStoreConfig struct {
	TTL     time.Duration // セッション有効期間
	Timeout time.Duration // 1操作あたりのタイムアウト。0以下なら呼び出し元のコンテキストのみに従う
}

// withTimeout はTimeoutが設定されていればctxに期限を付ける。
func (c SessionStoreConfig) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.Timeout)
}
