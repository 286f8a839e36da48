package logger

import (
	"io"
	"log/slog"
	"os"
)

// RedactedValue は機密属性の値の置き換え文字列。
const RedactedValue = "[REDACTED]"

// sensitiveKeys はログに値を残してはならない属性キー。
// session_idはCookieの値そのものであり、漏れるとセッションを乗っ取られる。
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"session_id":    {},
	"appid":         {},
	"api_key":       {},
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 機密属性の値は出力前にRedactedValueへ置き換える。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: redact,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[a.Key]; ok {
		return slog.String(a.Key, RedactedValue)
	}
	return a
}
