package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ratmeow/weather-tracker/internal/config"
	"github.com/ratmeow/weather-tracker/internal/database"
	"github.com/ratmeow/weather-tracker/internal/handler"
	"github.com/ratmeow/weather-tracker/internal/logger"
	"github.com/ratmeow/weather-tracker/internal/metrics"
	"github.com/ratmeow/weather-tracker/internal/middleware"
	"github.com/ratmeow/weather-tracker/internal/repository"
	"github.com/ratmeow/weather-tracker/internal/security"
	"github.com/ratmeow/weather-tracker/internal/usecase"
	"github.com/ratmeow/weather-tracker/internal/weather"
	"github.com/ratmeow/weather-tracker/internal/worker/cleanup"
)

const (
	dbPingTimeout   = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("session_backend", cfg.SessionBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// dependencies はルーター構築に必要なアダプタ群。
// 本番ではPostgreSQL/Redis、テストではメモリ実装を渡す。
type dependencies struct {
	db         database.Pinger
	uow        repository.UnitOfWorkFactory
	sessions   repository.SessionStore
	httpClient *http.Client
	registry   *prometheus.Registry
}

// runServe はAPIサーバーモードで起動する。
// DB接続とセッションストアを開き、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. セッションストア
	sessions, closeSessions, err := newSessionStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	// 3. 天気プロバイダー用HTTPクライアント
	httpClient, err := newProviderHTTPClient(cfg)
	if err != nil {
		return err
	}

	// 4. ルーターの構築
	registry := newRegistry()
	router, limiter := newRouter(cfg, dependencies{
		db:         db,
		uow:        repository.NewPostgresUnitOfWorkFactory(db),
		sessions:   sessions,
		httpClient: httpClient,
		registry:   registry,
	})
	defer limiter.Stop()

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serve(ctx, server)
}

// serve はサーバーを起動し、ctxがキャンセルされるまでブロックする。
// 起動に失敗した場合はそのエラーを返す。
func serve(ctx context.Context, server *http.Server) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newRouter はユースケースとハンドラーを組み立ててルーターを返す。
// 戻り値のRateLimiterは呼び出し元がStopする。
func newRouter(cfg *config.Config, deps dependencies) (http.Handler, *middleware.RateLimiter) {
	collector := metrics.NewCollector(deps.registry)

	weatherClient := weather.NewClient(deps.httpClient, slog.Default(), collector, weather.Config{
		APIKey:          cfg.OpenWeatherAPIKey,
		SearchURL:       cfg.OpenWeatherSearchURL,
		WeatherURL:      cfg.OpenWeatherWeatherURL,
		SearchLimit:     cfg.OpenWeatherSearchLimit,
		MaxResponseSize: cfg.OpenWeatherMaxResponseSize,
	})
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	sanitizer := security.NewNameSanitizer()

	limiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
		collector,
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsGatherer:   deps.registry,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		DB:                deps.db,

		RegisterUser: usecase.NewRegisterUser(deps.uow, hasher),
		LoginUser:    usecase.NewLoginUser(deps.uow, hasher, deps.sessions),
		LogoutUser:   usecase.NewLogoutUser(deps.sessions),
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},

		SearchLocation:     usecase.NewSearchLocation(weatherClient),
		AddUserLocation:    usecase.NewAddUserLocation(deps.uow, deps.sessions, sanitizer),
		RemoveUserLocation: usecase.NewRemoveUserLocation(deps.uow, deps.sessions),
		GetUserLocations:   usecase.NewGetUserLocations(deps.uow, deps.sessions, weatherClient, cfg.GetLocationsConcurrency),
	})

	return router, limiter
}

// newRegistry はGo/プロセスの標準メトリクスを登録済みのレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newSessionStore は設定されたバックエンドのセッションストアを生成する。
// 戻り値のclose関数はバックエンドの接続を解放する。
func newSessionStore(ctx context.Context, cfg *config.Config, db repository.DBTX) (repository.SessionStore, func(), error) {
	storeCfg := repository.SessionStoreConfig{
		TTL:     cfg.SessionTTL(),
		Timeout: cfg.SessionStoreTimeout,
	}

	switch cfg.SessionBackend {
	case config.SessionBackendPostgres:
		return repository.NewPostgresSessionRepo(db, storeCfg), func() {}, nil
	case config.SessionBackendRedis:
		client, err := repository.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Warn("failed to close redis client", slog.String("error", err.Error()))
			}
		}
		return repository.NewRedisSessionStore(client, storeCfg), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend: %q", cfg.SessionBackend)
	}
}

// newProviderHTTPClient は天気プロバイダー向けのHTTPクライアントを生成する。
// OpenWeatherSafeClientが有効な場合はエンドポイントを検証し、SSRF防止クライアントを返す。
func newProviderHTTPClient(cfg *config.Config) (*http.Client, error) {
	if !cfg.OpenWeatherSafeClient {
		return &http.Client{Timeout: cfg.OpenWeatherTimeout}, nil
	}

	guard := security.NewSSRFGuard()
	for _, endpoint := range []string{cfg.OpenWeatherSearchURL, cfg.OpenWeatherWeatherURL} {
		if err := guard.ValidateEndpoint(endpoint); err != nil {
			return nil, fmt.Errorf("invalid weather provider endpoint: %w", err)
		}
	}
	return guard.NewSafeClient(cfg.OpenWeatherTimeout), nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップジョブをctxがキャンセルされるまで定期実行する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	if cfg.SessionBackend != config.SessionBackendPostgres {
		slog.Info("session backend expires keys natively; cleanup only purges leftover rows",
			slog.String("session_backend", cfg.SessionBackend),
		)
	}

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	cleanup.NewCleanupJob(db, slog.Default()).Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// URLとして解釈できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
