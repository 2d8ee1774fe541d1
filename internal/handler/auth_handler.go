// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/ragapi/internal/auth"
	"github.com/hitoshi/ragapi/internal/identity"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Refresh(ctx context.Context, username, refreshToken string) (*identity.Tokens, error)
}

// AuthHandler はCognito委譲認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Username     string `json:"username"`
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse はCognitoが発行したトークンをそのまま中継する。
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int32  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// challengeResponse は追加のチャレンジが要求された場合のレスポンス。
type challengeResponse struct {
	Challenge string `json:"challenge"`
	Session   string `json:"session"`
}

func toTokenResponse(t *identity.Tokens) tokenResponse {
	return tokenResponse{
		AccessToken:  t.AccessToken,
		IDToken:      t.IDToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
		TokenType:    t.TokenType,
	}
}

// Login はメールアドレスとパスワードでCognito認証を行う。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if result.Challenge != "" {
		writeJSON(w, http.StatusOK, challengeResponse{
			Challenge: result.Challenge,
			Session:   result.Session,
		})
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(result.Tokens))
}

// Refresh はリフレッシュトークンで新しいトークンを取得する。
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.Username, req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(tokens))
}
