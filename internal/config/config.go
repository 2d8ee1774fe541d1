package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Cognito
	CognitoRegion          string
	CognitoUserPoolID      string
	CognitoAppClientID     string
	CognitoAppClientSecret string // 空の場合はSECRET_HASHを送信しない

	// IAM（未設定の場合はAWS SDKのデフォルト認証情報チェーンを使用する）
	IAMAccessKeyID     string
	IAMSecretAccessKey string

	// Provider
	ProviderMaxConcurrent      int
	ProviderTimeout            time.Duration
	ProviderDeleteOnUserDelete bool

	// Rate Limit（req/min/IP）
	RateLimitAuth    int
	RateLimitGeneral int

	// Cleanup
	ChatRetentionDays int
	CleanupInterval   time.Duration
	// 空の場合はワーカーの/metricsを公開しない
	WorkerMetricsPort string

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// リバースプロキシ配下でのみtrueにする
	TrustProxy bool
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	required := []struct {
		key string
		dst *string
	}{
		{"COGNITO_REGION", &cfg.CognitoRegion},
		{"COGNITO_USER_POOL_ID", &cfg.CognitoUserPoolID},
		{"COGNITO_APP_CLIENT_ID", &cfg.CognitoAppClientID},
		{"DB_HOST", &cfg.DBHost},
		{"DB_USER", &cfg.DBUser},
		{"DB_NAME", &cfg.DBName},
	}
	for _, r := range required {
		*r.dst = os.Getenv(r.key)
		if *r.dst == "" {
			missing = append(missing, r.key)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.CognitoAppClientSecret = os.Getenv("COGNITO_APP_CLIENT_SECRET")
	cfg.IAMAccessKeyID = os.Getenv("IAM_ACCESS_KEY_ID")
	cfg.IAMSecretAccessKey = os.Getenv("IAM_SECRET_ACCESS_KEY")

	// アクセスキーは片方だけの設定を許可しない
	if (cfg.IAMAccessKeyID == "") != (cfg.IAMSecretAccessKey == "") {
		return nil, fmt.Errorf("IAM_ACCESS_KEY_ID and IAM_SECRET_ACCESS_KEY must be set together")
	}

	// Optional fields with defaults
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBPort = getEnvInt("DB_PORT", 5432)
	cfg.DBSSLMode = getEnvString("DB_SSLMODE", "disable")
	cfg.ProviderMaxConcurrent = getEnvInt("PROVIDER_MAX_CONCURRENT", 10)
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second)
	cfg.ProviderDeleteOnUserDelete = getEnvBool("PROVIDER_DELETE_ON_USER_DELETE", false)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 300)
	cfg.ChatRetentionDays = getEnvInt("CHAT_RETENTION_DAYS", 180)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.WorkerMetricsPort = os.Getenv("WORKER_METRICS_PORT")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)

	return cfg, nil
}

// DatabaseURL はDB接続パラメータからPostgreSQLの接続URLを組み立てる。
// ユーザー名とパスワードはURLエスケープされる。
func (c *Config) DatabaseURL() string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	} else {
		u.User = url.User(c.DBUser)
	}
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// HasStaticCredentials はIAMアクセスキーが明示的に設定されているかを返す。
func (c *Config) HasStaticCredentials() bool {
	return c.IAMAccessKeyID != "" && c.IAMSecretAccessKey != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
