package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetverse/assetverse/internal/middleware"
	"github.com/assetverse/assetverse/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionTokenParser middleware.SessionTokenParser
	PrincipalResolver  middleware.PrincipalResolver
	CORSAllowedOrigin  string
	RateLimiter        *middleware.RateLimiter
	CSRFConfig         middleware.CSRFConfig
	Logger             *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメインサービス
	AssetService       AssetServiceInterface
	RequestService     RequestServiceInterface
	AffiliationService AffiliationServiceInterface
	BillingService     BillingServiceInterface
	AnalyticsService   AnalyticsServiceInterface
	ContactService     ContactServiceInterface
	UserService        UserServiceInterface

	// 監視
	Metrics        middleware.HTTPMetricsRecorder
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → [Session → CSRF → RateLimit(General)]
//
// 認証ルート（/auth/*）と問い合わせ（/contact）はセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	assetHandler := NewAssetHandler(deps.AssetService)
	requestHandler := NewRequestHandler(deps.RequestService)
	affiliationHandler := NewAffiliationHandler(deps.AffiliationService)
	billingHandler := NewBillingHandler(deps.BillingService)
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsService)
	contactHandler := NewContactHandler(deps.ContactService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 認証不要のルート ---

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register/employee", authHandler.RegisterEmployee)
		r.Post("/register/hr", authHandler.RegisterHR)
		r.Post("/login", authHandler.Login)
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/google/complete-signup", authHandler.CompleteSignup)
		r.Post("/jwt", authHandler.RefreshSession)
		r.Post("/logout", authHandler.Logout)
	})

	// 問い合わせフォーム（公開）
	r.Post("/contact", contactHandler.Submit)

	// CSRFトークン配布
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionTokenParser, deps.PrincipalResolver))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ロール共通
		r.Route("/api/users/me", func(r chi.Router) {
			r.Get("/", userHandler.Me)
			r.Patch("/", userHandler.UpdateMe)
			r.Delete("/", userHandler.Withdraw)
			r.Get("/logo", userHandler.CompanyLogo)
		})

		// 従業員専用
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleEmployee))

			r.Route("/api/assets", func(r chi.Router) {
				r.Get("/available", assetHandler.ListAvailable)
				r.Get("/assigned", assetHandler.ListAssigned)
			})

			r.Route("/api/requests", func(r chi.Router) {
				// POST /api/requests - リクエスト作成（作成専用レート制限を追加）
				r.With(deps.RateLimiter.RequestCreationMiddleware()).Post("/", requestHandler.Create)
				r.Get("/", requestHandler.ListMine)
				r.Post("/{id}/cancel", requestHandler.Cancel)
				r.Post("/{id}/return", requestHandler.Return)
			})

			r.Get("/api/my-company", affiliationHandler.GetMyCompany)
		})

		// HR専用
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleHR))

			r.Route("/api/hr/assets", func(r chi.Router) {
				r.Post("/", assetHandler.Create)
				r.Get("/", assetHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", assetHandler.Get)
					r.Put("/", assetHandler.Update)
					r.Delete("/", assetHandler.Delete)
				})
			})

			r.Route("/api/hr/requests", func(r chi.Router) {
				r.Get("/", requestHandler.ListForHR)
				r.Post("/{id}/approve", requestHandler.Approve)
				r.Post("/{id}/reject", requestHandler.Reject)
			})

			r.Route("/api/hr/employees", func(r chi.Router) {
				r.Get("/", affiliationHandler.ListEmployees)
				r.Delete("/{id}", affiliationHandler.RemoveEmployee)
			})

			r.Get("/api/hr/packages", billingHandler.ListPackages)
			r.Route("/api/hr/payments", func(r chi.Router) {
				r.Get("/", billingHandler.ListPayments)
				r.Post("/checkout", billingHandler.Checkout)
				r.Post("/confirm", billingHandler.Confirm)
			})

			r.Get("/api/hr/analytics/dashboard", analyticsHandler.Dashboard)
		})
	})

	return r
}
