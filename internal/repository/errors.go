package repository

import (
	"errors"
	"fmt"

	"github.com/hitoshi/ragapi/internal/database"
	"github.com/hitoshi/ragapi/internal/model"
)

var (
	// ErrDuplicate は一意制約違反を表す。
	ErrDuplicate = errors.New("duplicate key")
	// ErrReferenceViolation は外部キー制約違反を表す。
	// 存在しないレコードへの参照、または参照されているレコードの削除で発生する。
	ErrReferenceViolation = errors.New("foreign key violation")
)

// ConstraintError は制約違反の種別と制約名を保持する。
// errors.Is(err, ErrDuplicate) のように種別で判定できる。
type ConstraintError struct {
	Kind       error
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Constraint)
}

// Is は種別の番兵エラーと一致する場合にtrueを返す。
func (e *ConstraintError) Is(target error) bool {
	return target == e.Kind
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// classifyError はドライバのエラーを制約違反とそれ以外に分類する。
// 制約違反でない場合はactionを含むメッセージでラップする。
func classifyError(err error, action string) error {
	if constraint, ok := database.IsUniqueViolation(err); ok {
		return &ConstraintError{Kind: ErrDuplicate, Constraint: constraint, Err: err}
	}
	if constraint, ok := database.IsForeignKeyViolation(err); ok {
		return &ConstraintError{Kind: ErrReferenceViolation, Constraint: constraint, Err: err}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// ConstraintName はerrが制約違反の場合にその制約名を返す。
func ConstraintName(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}

// 制約名ごとの利用者向けメッセージ
var constraintMessages = map[string]string{
	"clients_ruc_key":                "同じRUCのクライアントが既に存在します。",
	"clients_name_key":               "同じ名前のクライアントが既に存在します。",
	"clients_api_key_key":            "同じAPIキーのクライアントが既に存在します。",
	"users_username_key":             "同じusernameのユーザーが既に存在します。",
	"users_email_key":                "同じemailのユーザーが既に存在します。",
	"users_provider_username_key":    "同じCognitoアカウントに紐づくユーザーが既に存在します。",
	"chat_details_id_chat_order_key": "同じ順序の明細が既に存在します。",
	"users_id_client_fkey":           "指定されたクライアントが存在しません。",
	"table_x_clients_id_client_fkey": "指定されたクライアントが存在しません。",
	"documents_id_client_fkey":       "指定されたクライアントが存在しません。",
	"chats_id_user_fkey":             "指定されたユーザーが存在しません。",
	"chat_details_id_chat_fkey":      "指定されたチャットが存在しません。",
}

// ToAPIError は登録・更新時の制約違反をAPIErrorに変換する。
// 制約違反でない場合はerrをそのまま返す。
func ToAPIError(err error) error {
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		return err
	}
	msg, ok := constraintMessages[ce.Constraint]
	switch {
	case errors.Is(ce, ErrDuplicate):
		if !ok {
			msg = "一意制約に違反しています。"
		}
		return model.NewConflictError(msg)
	case errors.Is(ce, ErrReferenceViolation):
		if !ok {
			msg = "参照先のレコードが存在しません。"
		}
		return model.NewInvalidReferenceError(msg)
	}
	return err
}

// DeleteToAPIError は削除時のエラーをAPIErrorに変換する。
// 他のレコードから参照されている場合は競合として扱う。
func DeleteToAPIError(err error) error {
	if errors.Is(err, ErrReferenceViolation) {
		return model.NewConflictError("他のレコードから参照されているため削除できません。")
	}
	return err
}
