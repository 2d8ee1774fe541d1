// Package auth はCognitoに委譲したログインとトークン更新を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/ragapi/internal/identity"
	"github.com/hitoshi/ragapi/internal/model"
)

// Gateway は認証に使うCognito呼び出しのインターフェース。
type Gateway interface {
	InitiateAuth(ctx context.Context, params map[string]string) (*identity.AuthResult, error)
	RefreshAuth(ctx context.Context, params map[string]string) (*identity.Tokens, error)
}

// Config は認証サービスの設定。起動後は変更しない。
type Config struct {
	ClientID     string
	ClientSecret string // 空の場合はSECRET_HASHを送らない
}

// LoginResult はログイン結果。Challengeが空でなければチャレンジ応答。
type LoginResult struct {
	Tokens    *identity.Tokens
	Challenge string
	Session   string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	gateway Gateway
	config  Config
}

// NewService はServiceを生成する。
func NewService(gateway Gateway, config Config) *Service {
	return &Service{gateway: gateway, config: config}
}

// Login はメールアドレスとパスワードでCognito認証を行う。
// Cognitoがチャレンジを返した場合はチャレンジ名とセッションをそのまま返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	username := model.NormalizeEmail(email)
	if !model.ValidEmail(username) {
		return nil, model.NewValidationError("emailの形式が不正です。")
	}
	if password == "" {
		return nil, model.NewValidationError("passwordは必須です。")
	}

	params := identity.AuthParams(map[string]string{
		identity.ParamUsername: username,
		identity.ParamPassword: password,
	}, username, s.config.ClientID, s.config.ClientSecret)

	res, err := s.gateway.InitiateAuth(ctx, params)
	if err != nil {
		return nil, s.authFailed(err, username)
	}

	if res.IsChallenge() {
		slog.Info("認証チャレンジを返却します",
			slog.String("username", username),
			slog.String("challenge", res.ChallengeName),
		)
		return &LoginResult{Challenge: res.ChallengeName, Session: res.Session}, nil
	}
	return &LoginResult{Tokens: res.Tokens}, nil
}

// Refresh はリフレッシュトークンでアクセストークンを再発行する。
// クライアントシークレットが設定されている場合、SECRET_HASHの計算にusernameが必要になるため、
// usernameが空ならCognitoを呼び出さずにバリデーションエラーを返す。
// usernameを指定する場合はメールアドレス形式であること。
func (s *Service) Refresh(ctx context.Context, username, refreshToken string) (*identity.Tokens, error) {
	username = model.NormalizeEmail(username)
	if s.config.ClientSecret != "" && username == "" {
		return nil, model.NewValidationError("クライアントシークレット使用時はusernameが必須です。")
	}
	if username != "" && !model.ValidEmail(username) {
		return nil, model.NewValidationError("usernameの形式が不正です。")
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, model.NewValidationError("refresh_tokenは必須です。")
	}

	params := identity.AuthParams(map[string]string{
		identity.ParamRefreshToken: refreshToken,
	}, username, s.config.ClientID, s.config.ClientSecret)

	tokens, err := s.gateway.RefreshAuth(ctx, params)
	if err != nil {
		return nil, s.authFailed(err, username)
	}
	return tokens, nil
}

// authFailed はCognitoのエラーを認証失敗に変換する。
func (s *Service) authFailed(err error, username string) error {
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		slog.Warn("Cognito認証に失敗しました",
			slog.String("username", username),
			slog.String("code", pe.Code),
		)
		return model.NewAuthFailedError(pe.Message)
	}
	return fmt.Errorf("認証処理に失敗しました: %w", err)
}
