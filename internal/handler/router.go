package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/venturex/internal/auth"
	"github.com/hitoshi/venturex/internal/metrics"
	"github.com/hitoshi/venturex/internal/middleware"
	"github.com/hitoshi/venturex/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	Verifier           auth.Verifier // nilの場合はuserIdパラメータを信頼する
	Metrics            metrics.Recorder
	MetricsHandler     http.Handler
	DB                 Pinger

	// サービス
	UserService       UserServiceInterface
	CompanyResolver   CompanyResolverInterface
	CompanyService    CompanyServiceInterface
	InvestmentService InvestmentServiceInterface
	WatchlistService  WatchlistServiceInterface
	UploadService     UploadServiceInterface // nilの場合はアップロード無効
	ChatService       ChatServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → SecurityHeaders → Logging → Metrics → CORS → Identity → RateLimit(General)
//
// /healthと/metricsはIdentityとレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "NOT_FOUND",
			Message:  "The requested endpoint does not exist.",
			Category: "system",
			Action:   "Check the request path.",
		})
	})

	userHandler := NewUserHandler(deps.UserService)
	companyHandler := NewCompanyHandler(deps.CompanyResolver, deps.CompanyService)
	investmentHandler := NewInvestmentHandler(deps.InvestmentService)
	watchlistHandler := NewWatchlistHandler(deps.WatchlistService)
	uploadHandler := NewUploadHandler(deps.UploadService)
	chatHandler := NewChatHandler(deps.ChatService)

	// --- 運用エンドポイント ---
	if deps.DB != nil {
		r.Get("/health", NewHealthHandler(deps.DB))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- API ---
	// ミドルウェアスタック: Identity → RateLimit(General)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware(deps.Verifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/auth/sync", userHandler.Sync)

		r.Get("/welcome", userHandler.GetWelcome)
		r.Patch("/welcome", userHandler.PatchWelcome)

		r.Route("/company", func(r chi.Router) {
			r.Get("/status", companyHandler.Status)
			r.Get("/redirect", companyHandler.Redirect)
			r.Post("/save", companyHandler.Save)
			r.Get("/get", companyHandler.Get)
			r.Get("/list", companyHandler.List)
		})

		r.Route("/raise_money", func(r chi.Router) {
			r.Get("/start", companyHandler.Mine)
			r.Patch("/start", companyHandler.Save)
			r.Patch("/description", companyHandler.UpdateDescription)
			r.Patch("/round", companyHandler.UpdateRound)
			r.Patch("/team", companyHandler.UpdateTeam)
			r.Patch("/products", companyHandler.UpdateProducts)
			r.Patch("/media", companyHandler.UpdateMedia)
		})

		r.Post("/investment", investmentHandler.Create)
		r.Get("/investment/list", investmentHandler.List)

		r.Get("/watchlist/list", watchlistHandler.List)
		r.Post("/watchlist/toggle", watchlistHandler.Toggle)

		// アップロードは専用のレート制限を追加
		r.Route("/upload", func(r chi.Router) {
			r.Use(deps.RateLimiter.UploadMiddleware())
			r.Post("/image", uploadHandler.Image)
			r.Post("/video", uploadHandler.Video)
			r.Post("/remote", uploadHandler.Remote)
		})

		r.Post("/chat/token", chatHandler.Token)
		r.Post("/chat/channel", chatHandler.Channel)
	})

	return r
}
