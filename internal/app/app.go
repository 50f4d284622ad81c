package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/venturex/internal/auth"
	"github.com/hitoshi/venturex/internal/chat"
	"github.com/hitoshi/venturex/internal/company"
	"github.com/hitoshi/venturex/internal/config"
	"github.com/hitoshi/venturex/internal/database"
	"github.com/hitoshi/venturex/internal/handler"
	"github.com/hitoshi/venturex/internal/investment"
	"github.com/hitoshi/venturex/internal/logger"
	"github.com/hitoshi/venturex/internal/metrics"
	"github.com/hitoshi/venturex/internal/middleware"
	"github.com/hitoshi/venturex/internal/repository"
	"github.com/hitoshi/venturex/internal/security"
	"github.com/hitoshi/venturex/internal/taxid"
	"github.com/hitoshi/venturex/internal/upload"
	"github.com/hitoshi/venturex/internal/user"
	"github.com/hitoshi/venturex/internal/watchlist"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルを反映する
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
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
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 依存関係の構築
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildRouterDeps(cfg, db, reg)
	if err != nil {
		return err
	}
	defer deps.RateLimiter.Stop()

	router := handler.NewRouter(deps)

	// 3. HTTPサーバーの起動
	// アップロードはCDNへの転送を含むため、書き込みタイムアウトをアップロードに合わせる
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.UploadTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	// 処理中のリクエストを待ってからDB接続を閉じる（deferの順序）
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildRouterDeps はリポジトリ・外部クライアント・サービスを構築し、ルーターの依存関係を返す。
// 外部サービスの認証情報が未設定の場合、その機能は無効（503）として組み立てる。
func buildRouterDeps(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*handler.RouterDeps, error) {
	log := slog.Default()
	recorder := metrics.NewCollector(reg)

	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	companyRepo := repository.NewPostgresCompanyRepo(db)
	investmentRepo := repository.NewPostgresInvestmentRepo(db)
	watchlistRepo := repository.NewPostgresWatchlistRepo(db)

	// 2. セキュリティサービスの初期化
	urlGuard := security.NewURLGuard()
	sanitizer := security.NewRichTextSanitizer()

	// 3. 外部サービスクライアントの初期化
	taxClient := taxid.NewClient(
		&http.Client{Timeout: cfg.TaxIDTimeout},
		cfg.TaxIDVerifyURL, cfg.TaxIDAPIKey, log, recorder,
	)
	if cfg.TaxIDVerifyURL == "" {
		slog.Warn("tax id verification disabled: TAXID_VERIFY_URL is not set")
	}

	var chatGateway chat.Gateway
	if cfg.ChatEnabled() {
		chatGateway = chat.NewClient(
			&http.Client{Timeout: cfg.ChatTimeout},
			cfg.ChatBaseURL, cfg.ChatAPIKey, cfg.ChatAPISecret, log,
		)
	} else {
		slog.Warn("chat disabled: CHAT_API_KEY or CHAT_API_SECRET is not set")
	}

	// 4. ドメインサービスの初期化
	deps := &handler.RouterDeps{
		Logger:             log,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitUpload)),
		Metrics:            recorder,
		MetricsHandler:     metrics.Handler(reg),
		DB:                 db,

		UserService:       user.NewService(userRepo, taxClient, log),
		CompanyResolver:   company.NewResolver(companyRepo, log, recorder),
		CompanyService:    company.NewService(companyRepo, sanitizer, urlGuard, log, recorder),
		InvestmentService: investment.NewService(investmentRepo, companyRepo, log, recorder),
		WatchlistService:  watchlist.NewService(watchlistRepo, userRepo, companyRepo, log, recorder),
		ChatService:       chat.NewService(chatGateway, companyRepo, log, recorder),
	}

	if cfg.UploadEnabled() {
		deps.UploadService = upload.NewClient(upload.Config{
			BaseURL:        cfg.CDNBaseURL,
			CloudName:      cfg.CDNCloudName,
			APIKey:         cfg.CDNAPIKey,
			APISecret:      cfg.CDNAPISecret,
			MaxBytes:       cfg.UploadMaxBytes,
			RemoteMaxBytes: cfg.RemoteFetchMaxBytes,
		}, &http.Client{Timeout: cfg.UploadTimeout}, urlGuard, cfg.RemoteFetchTimeout, log, recorder)
	} else {
		slog.Warn("upload disabled: CDN credentials are not set")
	}

	// 5. IdPトークン検証
	if cfg.IdentityVerificationEnabled() {
		verifier, err := auth.NewJWTVerifier(cfg.IdentityJWTSecret, cfg.IdentityJWTPublicKey, cfg.IdentityJWTIssuer)
		if err != nil {
			deps.RateLimiter.Stop()
			return nil, fmt.Errorf("failed to build identity verifier: %w", err)
		}
		deps.Verifier = verifier
	} else {
		slog.Warn("identity verification disabled: trusting userId parameters")
	}

	return deps, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
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
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.Redacted()
}
