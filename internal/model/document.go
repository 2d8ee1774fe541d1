package model

import "time"

// Document はClientが登録した参照用ドキュメントを表す。
type Document struct {
	ID        int64
	ClientID  int64
	Title     string
	Content   string
	FilePath  *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// DocumentPatch はDocumentの部分更新内容を表す。
type DocumentPatch struct {
	Title    Field[string] `json:"title"`
	Content  Field[string] `json:"content"`
	FilePath Field[string] `json:"file_path"`
	Active   Field[bool]   `json:"swt"`
}

// IsEmpty は更新対象の項目が1つも指定されていない場合にtrueを返す。
func (p DocumentPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Content.Set && !p.FilePath.Set && !p.Active.Set
}
