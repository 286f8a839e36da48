// Package security はパスワードハッシュ、入力サニタイズ、外部通信の保護を提供する。
package security

import (
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// SSRFGuard は天気プロバイダーなど外部APIへの通信先を制限する。
type SSRFGuard struct {
	schemes []string
	ports   []int
}

// NewSSRFGuard はhttp/httpsの80/443番ポートのみを許可するSSRFGuardを生成する。
func NewSSRFGuard() *SSRFGuard {
	return &SSRFGuard{
		schemes: []string{"http", "https"},
		ports:   []int{80, 443},
	}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlは接続時にDNS解決後のIPアドレスを検証し、
// プライベート・ループバック・リンクローカル宛ての接続を拒否する。
func (g *SSRFGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(g.schemes...).
		SetAllowedPorts(g.ports...).
		Build()

	return safeurl.Client(config).Client
}

// ValidateEndpoint は設定されたエンドポイントURLを起動時に静的検証する。
// ホスト名の解決は行わない。解決後のアドレスはNewSafeClientのクライアントが検証する。
func (g *SSRFGuard) ValidateEndpoint(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !g.allowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil && isInternalAddr(addr) {
		return fmt.Errorf("blocked IP address: %s", addr)
	}

	return nil
}

func (g *SSRFGuard) allowedScheme(scheme string) bool {
	for _, s := range g.schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

// isInternalAddr はアドレスが外部から到達すべきでない範囲にあるかを返す。
func isInternalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified() ||
		(addr.Is4() && addr.As4()[0] == 0)
}
