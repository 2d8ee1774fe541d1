package model

import "time"

// Client はサービスを契約する法人を表す。
// 1つのClientが複数のUser、Document、TableXClientを所有する。
type Client struct {
	ID           int64
	RUC          string // 納税者番号（一意）
	Name         string
	APIKey       *string
	ContactEmail *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// ClientPatch はClientの部分更新内容を表す。
type ClientPatch struct {
	RUC          Field[string] `json:"ruc"`
	Name         Field[string] `json:"name"`
	APIKey       Field[string] `json:"api_key"`
	ContactEmail Field[string] `json:"contact_email"`
	Active       Field[bool]   `json:"swt"`
}

// IsEmpty は更新対象の項目が1つも指定されていない場合にtrueを返す。
func (p ClientPatch) IsEmpty() bool {
	return !p.RUC.Set && !p.Name.Set && !p.APIKey.Set && !p.ContactEmail.Set && !p.Active.Set
}

// TableXClient はClientごとに登録されるテーブル定義を表す。
type TableXClient struct {
	ID          int64
	ClientID    int64
	Name        string
	Description *string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// TableXClientPatch はTableXClientの部分更新内容を表す。
type TableXClientPatch struct {
	ClientID    Field[int64]  `json:"idClient"`
	Name        Field[string] `json:"name"`
	Description Field[string] `json:"description"`
	Active      Field[bool]   `json:"swt"`
}

// IsEmpty は更新対象の項目が1つも指定されていない場合にtrueを返す。
func (p TableXClientPatch) IsEmpty() bool {
	return !p.ClientID.Set && !p.Name.Set && !p.Description.Set && !p.Active.Set
}
