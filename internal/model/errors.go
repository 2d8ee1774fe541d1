// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, provider, store, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeProvider         = "PROVIDER_ERROR"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInvalidReference = "INVALID_REFERENCE"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeClientNotFound   = "CLIENT_NOT_FOUND"
	ErrCodeTableNotFound    = "TABLE_NOT_FOUND"
	ErrCodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	ErrCodeChatNotFound     = "CHAT_NOT_FOUND"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディを解釈できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディが不正です。",
		Category: "validation",
		Action:   "正しいJSON形式で送信してください。",
	}
}

// NewValidationError は入力値の検証エラーを生成する。
// リモート呼び出しの前に返されるため、外部サービスには副作用がない。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewAuthFailedError はCognitoでの認証失敗を表すエラーを生成する。
// メッセージにはCognitoが返したメッセージをそのまま使用する。
func NewAuthFailedError(providerMessage string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  providerMessage,
		Category: "auth",
		Action:   "メールアドレスとパスワード、またはリフレッシュトークンを確認してください。",
	}
}

// NewProviderError はユーザー登録時のCognito呼び出し失敗を表すエラーを生成する。
func NewProviderError(providerCode, providerMessage string) *APIError {
	return &APIError{
		Code:     ErrCodeProvider,
		Message:  fmt.Sprintf("Cognito error (%s): %s", providerCode, providerMessage),
		Category: "provider",
		Action:   "入力内容を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewConflictError は一意制約に違反する登録・更新のエラーを生成する。
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  message,
		Category: "store",
		Action:   "重複しない値を指定してください。",
	}
}

// NewInvalidReferenceError は存在しないレコードを参照する登録・更新のエラーを生成する。
func NewInvalidReferenceError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidReference,
		Message:  message,
		Category: "store",
		Action:   "関連するレコードを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(id int64) *APIError {
	return newNotFoundError(ErrCodeUserNotFound, "ユーザー", id)
}

// NewClientNotFoundError はクライアントが見つからない場合のエラーを生成する。
func NewClientNotFoundError(id int64) *APIError {
	return newNotFoundError(ErrCodeClientNotFound, "クライアント", id)
}

// NewTableNotFoundError はテーブル定義が見つからない場合のエラーを生成する。
func NewTableNotFoundError(id int64) *APIError {
	return newNotFoundError(ErrCodeTableNotFound, "テーブル", id)
}

// NewDocumentNotFoundError はドキュメントが見つからない場合のエラーを生成する。
func NewDocumentNotFoundError(id int64) *APIError {
	return newNotFoundError(ErrCodeDocumentNotFound, "ドキュメント", id)
}

// NewChatNotFoundError はチャットが見つからない場合のエラーを生成する。
func NewChatNotFoundError(id int64) *APIError {
	return newNotFoundError(ErrCodeChatNotFound, "チャット", id)
}

func newNotFoundError(code, label string, id int64) *APIError {
	return &APIError{
		Code:     code,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %d", label, id),
		Category: "store",
		Action:   "IDを確認してください。",
	}
}
