package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/ragapi/internal/metrics"
	"github.com/hitoshi/ragapi/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	// TrustProxy がtrueの場合のみX-Forwarded-For/X-Real-IPから接続元IPを決定する
	TrustProxy bool
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler // nilの場合は/metricsを公開しない

	// ヘルスチェック
	DB Pinger

	AuthService     AuthServiceInterface
	UserService     UserServiceInterface
	ClientService   ClientServiceInterface
	TableService    TableServiceInterface
	DocumentService DocumentServiceInterface
	ChatService     ChatServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS → RateLimit(Auth|General)
//
// /healthと/metricsはレート制限の対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()

	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	clientHandler := NewClientHandler(deps.ClientService)
	tableHandler := NewTableHandler(deps.TableService)
	documentHandler := NewDocumentHandler(deps.DocumentService)
	chatHandler := NewChatHandler(deps.ChatService, deps.UserService)

	// --- レート制限なし ---
	r.Get("/health", NewHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証（厳しめのレート制限） ---
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	// --- API全般 ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.CreateUser)
			r.Get("/", userHandler.ListUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.GetUser)
				r.Put("/", userHandler.UpdateUser)
				r.Patch("/", userHandler.UpdateUser)
				r.Delete("/", userHandler.DeleteUser)
				r.Get("/chats", chatHandler.ListUserChats)
			})
		})

		r.Route("/clients", func(r chi.Router) {
			r.Post("/", clientHandler.CreateClient)
			r.Get("/", clientHandler.ListClients)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", clientHandler.GetClient)
				r.Put("/", clientHandler.UpdateClient)
				r.Patch("/", clientHandler.UpdateClient)
				r.Delete("/", clientHandler.DeleteClient)
			})
		})

		r.Route("/tablesXclient", func(r chi.Router) {
			r.Post("/", tableHandler.CreateTable)
			r.Get("/", tableHandler.ListTables)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", tableHandler.GetTable)
				r.Put("/", tableHandler.UpdateTable)
				r.Patch("/", tableHandler.UpdateTable)
				r.Delete("/", tableHandler.DeleteTable)
			})
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentHandler.CreateDocument)
			r.Get("/", documentHandler.ListDocuments)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", documentHandler.GetDocument)
				r.Put("/", documentHandler.UpdateDocument)
				r.Patch("/", documentHandler.UpdateDocument)
				r.Delete("/", documentHandler.DeleteDocument)
			})
		})

		r.Route("/chats", func(r chi.Router) {
			r.Post("/", chatHandler.CreateChat)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", chatHandler.GetChat)
				r.Put("/", chatHandler.UpdateChat)
				r.Patch("/", chatHandler.UpdateChat)
				r.Delete("/", chatHandler.DeleteChat)
				r.Post("/details", chatHandler.AddDetail)
				r.Get("/details", chatHandler.ListDetails)
			})
		})
	})

	return r
}
