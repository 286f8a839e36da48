// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ratmeow/weather-tracker/internal/metrics"
	"github.com/ratmeow/weather-tracker/internal/middleware"
	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/usecase"
)

// UserRegistrar はユーザー登録のユースケース。
type UserRegistrar interface {
	Execute(ctx context.Context, input usecase.RegisterUserInput) (*usecase.RegisterUserOutput, error)
}

// UserAuthenticator はログインのユースケース。
type UserAuthenticator interface {
	Execute(ctx context.Context, input usecase.LoginUserInput) (*model.Session, error)
}

// SessionTerminator はログアウトのユースケース。
type SessionTerminator interface {
	Execute(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler は登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	register UserRegistrar
	login    UserAuthenticator
	logout   SessionTerminator
	config   AuthHandlerConfig
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(register UserRegistrar, login UserAuthenticator, logout SessionTerminator, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &AuthHandler{
		register: register,
		login:    login,
		logout:   logout,
		config:   config,
		metrics:  collector,
		now:      time.Now,
	}
}

type credentialsRequest struct {
	Login    *string `json:"login"`
	Password *string `json:"password"`
}

func (req credentialsRequest) validate() error {
	if req.Login == nil {
		return model.NewInvalidRequestError("login is required")
	}
	if req.Password == nil {
		return model.NewInvalidRequestError("password is required")
	}
	return nil
}

type loginResponse struct {
	Username string `json:"username"`
}

// Register は新規ユーザーを登録する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if _, err := h.register.Execute(r.Context(), usecase.RegisterUserInput{
		Login:    *req.Login,
		Password: *req.Password,
	}); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Login はユーザーを認証し、セッションCookieを発行する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	session, err := h.login.Execute(r.Context(), usecase.LoginUserInput{
		Login:    *req.Login,
		Password: *req.Password,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	h.metrics.RecordSessionCreated()

	maxAge := int(session.ExpiresAt.Sub(h.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		Expires:  session.ExpiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{Username: *req.Login})
}

// Logout はセッションを破棄し、セッションCookieを削除する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.logout.Execute(r.Context(), sessionID); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusOK)
}
