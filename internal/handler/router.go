package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ssato/atelier/internal/metrics"
	"github.com/ssato/atelier/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	r.Route("/auth", func(r chi.Router) {
		// OAuthフロー
		r.Get("/google/login", h.Login)
		r.Get("/google/callback", h.Callback)

		// セッション管理
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ヘルスチェック（nil可。nilの場合、/healthは常に200を返す）
	HealthChecker HealthChecker

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 生成物・プロンプト
	CreationService CreationServiceInterface
	PromptService   PromptServiceInterface

	// メディア
	MediaService MediaServiceInterface

	// AI生成
	GenerateService GenerateServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// メトリクス（nil可）
	Metrics metrics.MetricsCollector
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → Session → RateLimit(General) → CSRF
//
// 認証ルート（/auth/*）はミドルウェアチェーンの外に配置する。
// 生成系ルート（/api/generate/*、/api/transcribe）には生成専用レート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効く共通ミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.AuthConfig.CookieSecure,
		CookieDomain: deps.AuthConfig.CookieDomain,
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	creationHandler := NewCreationHandler(deps.CreationService, deps.Metrics)
	promptHandler := NewPromptHandler(deps.PromptService)
	mediaHandler := NewMediaHandler(deps.MediaService, deps.CreationService, deps.Metrics)
	generateHandler := NewGenerateHandler(deps.GenerateService, deps.Metrics)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// CSRFトークン取得（ログイン前にフロントエンドが取得する）
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig).ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))

		// 生成物管理
		r.Route("/api/creations", func(r chi.Router) {
			r.Get("/", creationHandler.ListCreations)
			r.Post("/", creationHandler.SaveCreations)
			r.Delete("/{id}", creationHandler.DeleteCreation)
		})

		// プロンプト管理
		r.Route("/api/prompts", func(r chi.Router) {
			r.Get("/", promptHandler.ListPrompts)
			r.Post("/", promptHandler.SavePrompt)
			r.Delete("/{id}", promptHandler.DeletePrompt)
		})

		// メディア取得・保存
		r.Route("/api/media", func(r chi.Router) {
			r.Get("/download", mediaHandler.Download)
			r.Post("/save", mediaHandler.SaveImage)
		})

		// AI生成（生成専用レート制限を追加）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.GenerateMiddleware())

			r.Post("/api/generate/coloring-book", generateHandler.ColoringBook)
			r.Post("/api/generate/prompt", generateHandler.GeneratePrompt)
			r.Post("/api/transcribe", generateHandler.Transcribe)
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
