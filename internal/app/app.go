package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/ragapi/internal/auth"
	"github.com/hitoshi/ragapi/internal/chat"
	"github.com/hitoshi/ragapi/internal/client"
	"github.com/hitoshi/ragapi/internal/config"
	"github.com/hitoshi/ragapi/internal/database"
	"github.com/hitoshi/ragapi/internal/document"
	"github.com/hitoshi/ragapi/internal/handler"
	"github.com/hitoshi/ragapi/internal/identity"
	"github.com/hitoshi/ragapi/internal/logger"
	"github.com/hitoshi/ragapi/internal/metrics"
	"github.com/hitoshi/ragapi/internal/middleware"
	"github.com/hitoshi/ragapi/internal/repository"
	"github.com/hitoshi/ragapi/internal/saga"
	"github.com/hitoshi/ragapi/internal/security"
	"github.com/hitoshi/ragapi/internal/tables"
	"github.com/hitoshi/ragapi/internal/user"
	"github.com/hitoshi/ragapi/internal/worker/cleanup"
	"github.com/hitoshi/ragapi/internal/worker/pool"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数の設定を読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		slog.Warn("invalid LOG_LEVEL, falling back to info",
			slog.String("log_level", cfg.LogLevel),
		)
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
		slog.String("cognito_region", cfg.CognitoRegion),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続とCognitoクライアントを用意し、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	clientRepo := repository.NewPostgresClientRepo(db)
	tableRepo := repository.NewPostgresTableXClientRepo(db)
	documentRepo := repository.NewPostgresDocumentRepo(db)
	chatRepo := repository.NewPostgresChatRepo(db)

	// 4. Cognitoゲートウェイの初期化
	cognito, err := identity.NewCognitoClient(context.Background(), identity.ClientConfig{
		Region:          cfg.CognitoRegion,
		AccessKeyID:     cfg.IAMAccessKeyID,
		SecretAccessKey: cfg.IAMSecretAccessKey,
		Timeout:         cfg.ProviderTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create cognito client: %w", err)
	}
	gateway := identity.NewGateway(cognito, identity.GatewayConfig{
		UserPoolID: cfg.CognitoUserPoolID,
		ClientID:   cfg.CognitoAppClientID,
	}, pool.New(cfg.ProviderMaxConcurrent), collector, slog.Default())

	// 5. ドメインサービスの初期化
	sanitizer := security.NewContentSanitizer()

	authService := auth.NewService(gateway, auth.Config{
		ClientID:     cfg.CognitoAppClientID,
		ClientSecret: cfg.CognitoAppClientSecret,
	})
	userService := user.NewService(userRepo, gateway, saga.NewRunner(slog.Default(), collector), user.Options{
		DeleteProviderAccount: cfg.ProviderDeleteOnUserDelete,
	})
	clientService := client.NewService(clientRepo)
	tableService := tables.NewService(tableRepo)
	documentService := document.NewService(documentRepo, sanitizer)
	chatService := chat.NewService(chatRepo, sanitizer)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitAuth, cfg.RateLimitGeneral),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TrustProxy:        cfg.TrustProxy,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		DB:                db,

		AuthService:     authService,
		UserService:     userService,
		ClientService:   clientService,
		TableService:    tableService,
		DocumentService: documentService,
		ChatService:     chatService,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Int("provider_max_concurrent", cfg.ProviderMaxConcurrent),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 保持期間を過ぎたチャットの定期削除を行う。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	reg := prometheus.NewRegistry()
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), metrics.NewCollector(reg))
	cleanupJob.RetentionDays = cfg.ChatRetentionDays

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WorkerMetricsPort != "" {
		metricsServer := &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           metrics.SetupMetricsRoute(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("worker metrics listen error", slog.String("error", err.Error()))
			}
		}()
		defer metricsServer.Close()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("retention_days", cfg.ChatRetentionDays),
	)

	// ctxがキャンセルされるまでブロックする
	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	databaseURL := cfg.DatabaseURL()
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)

	if err := database.RunMigrations(databaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
