package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxLocationNameLength はlocations.nameカラムの文字数上限。
const maxLocationNameLength = 255

// maxSanitizePasses は文字実体の復元とタグ除去を繰り返す上限回数。
const maxSanitizePasses = 5

// NameSanitizer は地点カタログに保存する名前からマークアップを取り除く。
// 保存される名前は全ユーザーに共有されるため、プレーンテキストのみを残す。
type NameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerを生成する。
func NewNameSanitizer() *NameSanitizer {
	return &NameSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeName はタグを除去し、連続する空白を1つにまとめて返す。
// 文字実体を復元してからタグを除去し、結果が変わらなくなるまで繰り返す。
// エスケープされたマークアップも復元後に除去される。
func (s *NameSanitizer) SanitizeName(name string) string {
	stripped := name
	for i := 0; i < maxSanitizePasses; i++ {
		next := s.strip(stripped)
		if next == stripped {
			break
		}
		stripped = next
	}
	if strings.ContainsAny(stripped, "<>") {
		stripped = strings.NewReplacer("<", "", ">", "").Replace(stripped)
	}
	cleaned := strings.Join(strings.Fields(stripped), " ")

	if runes := []rune(cleaned); len(runes) > maxLocationNameLength {
		cleaned = string(runes[:maxLocationNameLength])
	}
	return cleaned
}

// strip は文字実体を復元してからタグを除去し、StrictPolicyのエスケープを元に戻す。
func (s *NameSanitizer) strip(name string) string {
	return html.UnescapeString(s.policy.Sanitize(html.UnescapeString(name)))
}
