// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Identity provider
	// いずれも未設定の場合はトークン検証を行わず、userIdパラメータを信頼する。
	IdentityJWTSecret    string `env:"IDENTITY_JWT_SECRET"`
	IdentityJWTPublicKey string `env:"IDENTITY_JWT_PUBLIC_KEY"`
	IdentityJWTIssuer    string `env:"IDENTITY_JWT_ISSUER"`

	// CDN
	CDNBaseURL          string        `env:"CDN_BASE_URL" envDefault:"https://api.cloudinary.com/v1_1"`
	CDNCloudName        string        `env:"CDN_CLOUD_NAME"`
	CDNAPIKey           string        `env:"CDN_API_KEY"`
	CDNAPISecret        string        `env:"CDN_API_SECRET"`
	UploadMaxBytes      int64         `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	UploadTimeout       time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"60s"`
	RemoteFetchTimeout  time.Duration `env:"REMOTE_FETCH_TIMEOUT" envDefault:"10s"`
	RemoteFetchMaxBytes int64         `env:"REMOTE_FETCH_MAX_BYTES" envDefault:"5242880"`

	// Chat
	ChatBaseURL   string        `env:"CHAT_BASE_URL" envDefault:"https://chat.stream-io-api.com"`
	ChatAPIKey    string        `env:"CHAT_API_KEY"`
	ChatAPISecret string        `env:"CHAT_API_SECRET"`
	ChatTimeout   time.Duration `env:"CHAT_TIMEOUT" envDefault:"10s"`

	// Tax-id verification
	TaxIDVerifyURL string        `env:"TAXID_VERIFY_URL"`
	TaxIDAPIKey    string        `env:"TAXID_API_KEY"`
	TaxIDTimeout   time.Duration `env:"TAXID_TIMEOUT" envDefault:"5s"`

	// Rate Limit (req/min)
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitUpload  int `env:"RATE_LIMIT_UPLOAD" envDefault:"10"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort      string        `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envファイルがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.CORSAllowedOrigins = trimEmpty(cfg.CORSAllowedOrigins)

	return cfg, nil
}

// IdentityVerificationEnabled はIdPトークン検証が設定されているかを返す。
func (c *Config) IdentityVerificationEnabled() bool {
	return c.IdentityJWTSecret != "" || c.IdentityJWTPublicKey != ""
}

// UploadEnabled はCDNアップロードの認証情報が揃っているかを返す。
func (c *Config) UploadEnabled() bool {
	return c.CDNCloudName != "" && c.CDNAPIKey != "" && c.CDNAPISecret != ""
}

// ChatEnabled はチャットSaaSの認証情報が揃っているかを返す。
func (c *Config) ChatEnabled() bool {
	return c.ChatAPIKey != "" && c.ChatAPISecret != ""
}

func trimEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
