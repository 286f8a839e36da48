package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ratmeow/weather-tracker/internal/database"
	"github.com/ratmeow/weather-tracker/internal/metrics"
	"github.com/ratmeow/weather-tracker/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	MetricsGatherer   prometheus.Gatherer
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ヘルスチェック
	DB database.Pinger

	// 認証
	RegisterUser UserRegistrar
	LoginUser    UserAuthenticator
	LogoutUser   SessionTerminator
	AuthConfig   AuthHandlerConfig

	// 地点
	SearchLocation     LocationSearcher
	AddUserLocation    LocationAdder
	RemoveUserLocation LocationRemover
	GetUserLocations   LocationLister
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS → (RateLimit) → (Session)
//
// /health と /metrics はレート制限の対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, middleware.ErrorResponseBody{
			Code:     "ROUTE_NOT_FOUND",
			Message:  "Not Found",
			Category: "system",
			Action:   "Check the request path.",
		})
	})

	authHandler := NewAuthHandler(deps.RegisterUser, deps.LoginUser, deps.LogoutUser, deps.AuthConfig, deps.Metrics)
	locationHandler := NewLocationHandler(deps.SearchLocation, deps.AddUserLocation, deps.RemoveUserLocation, deps.GetUserLocations)

	// --- 運用エンドポイント ---
	if deps.DB != nil {
		r.Get("/health", NewHealthHandler(deps.DB))
	}
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.SetupMetricsRoute(deps.MetricsGatherer))
	}

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})
	r.With(deps.RateLimiter.GeneralMiddleware()).Get("/search", locationHandler.Search)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: RateLimit(General) → Session
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewSessionMiddleware())

		r.Post("/logout", authHandler.Logout)
		r.Post("/search", locationHandler.Add)
		r.Get("/locations", locationHandler.List)
		r.Delete("/", locationHandler.Remove)
	})

	return r
}
