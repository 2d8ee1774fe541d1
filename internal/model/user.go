// Package model はドメインモデルを定義する。
package model

import "time"

// User はClientに所属するサービス利用ユーザーを表す。
// 認証情報はCognito側で管理し、ローカルにはパスワードを保持しない。
type User struct {
	ID       int64
	Username string
	Email    string
	FullName *string
	ClientID int64
	// ProviderUsername はCognitoが返したUsername。
	// 列追加前に作成されたユーザーはnilになる。
	ProviderUsername *string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

// UserPatch はUserの部分更新内容を表す。
// Cognito側の属性は更新しない。
type UserPatch struct {
	Username Field[string] `json:"username"`
	Email    Field[string] `json:"email"`
	FullName Field[string] `json:"full_name"`
	ClientID Field[int64]  `json:"idClient"`
	Active   Field[bool]   `json:"swt"`
}

// IsEmpty は更新対象の項目が1つも指定されていない場合にtrueを返す。
func (p UserPatch) IsEmpty() bool {
	return !p.Username.Set && !p.Email.Set && !p.FullName.Set && !p.ClientID.Set && !p.Active.Set
}
