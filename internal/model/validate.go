package model

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// カラムの最大文字数（VARCHAR(n)と一致させる）
const (
	MaxUsernameLength        = 50
	MaxEmailLength           = 100
	MaxFullNameLength        = 100
	MaxRUCLength             = 11
	MaxClientNameLength      = 100
	MaxAPIKeyLength          = 255
	MaxTableNameLength       = 100
	MaxDescriptionLength     = 500
	MaxTitleLength           = 200
	MaxContentLength         = 4000
	MaxFilePathLength        = 1000
	MaxSessionIDLength       = 100
	MaxMessageLength         = 1000
	MaxResponseLength        = 2000
	MaxSourceDocumentsLength = 4000
	MaxDetailLength          = 2000
)

// NormalizeEmail は前後の空白を除去し、小文字に変換する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail はaddr-spec形式のメールアドレスかどうかを返す。表示名付きの形式は受け付けない。
func ValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// CheckLength はvalueの文字数がmax以内でなければValidationErrorを返す。
// バイト数ではなく文字数で数える。
func CheckLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return NewValidationError(fmt.Sprintf("%sは%d文字以内で指定してください。", field, max))
	}
	return nil
}

// CheckOptionalLength はnilを許容するCheckLength。
func CheckOptionalLength(field string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return CheckLength(field, *value, max)
}

// CheckFieldLength は値が指定された場合のみ文字数を検証する。
func CheckFieldLength(field string, f Field[string], max int) error {
	if !f.Set || f.Null {
		return nil
	}
	return CheckLength(field, f.Value, max)
}

// FirstError は最初のnilでないエラーを返す。
func FirstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
