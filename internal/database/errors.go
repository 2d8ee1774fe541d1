package database

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// IsUniqueViolation はerrがユニーク制約違反かを判定する。
// 違反した制約名を併せて返す。
func IsUniqueViolation(err error) (string, bool) {
	return constraintError(err, codeUniqueViolation)
}

// IsForeignKeyViolation はerrが外部キー制約違反かを判定する。
// 違反した制約名を併せて返す。
func IsForeignKeyViolation(err error) (string, bool) {
	return constraintError(err, codeForeignKeyViolation)
}

func constraintError(err error, code string) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return pqErr.Constraint, true
	}
	return "", false
}
