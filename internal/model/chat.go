package model

import "time"

// Chat はユーザーの1回の問い合わせと応答を表す。
type Chat struct {
	ID              int64
	UserID          int64
	SessionID       string
	Message         string
	Response        *string
	SourceDocuments *string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// ChatPatch はChatの部分更新内容を表す。
// 応答生成後にresponseとsource_documentsを書き戻す用途を想定する。
type ChatPatch struct {
	Response        Field[string] `json:"response"`
	SourceDocuments Field[string] `json:"source_documents"`
	Active          Field[bool]   `json:"swt"`
}

// IsEmpty は更新対象の項目が1つも指定されていない場合にtrueを返す。
func (p ChatPatch) IsEmpty() bool {
	return !p.Response.Set && !p.SourceDocuments.Set && !p.Active.Set
}

// ChatDetailType はチャット明細の発言者種別を表す。
type ChatDetailType string

const (
	ChatDetailTypeUser   ChatDetailType = "user"
	ChatDetailTypeSystem ChatDetailType = "system"
	ChatDetailTypeBot    ChatDetailType = "bot"
)

// Valid は定義済みの種別かどうかを返す。
func (t ChatDetailType) Valid() bool {
	switch t {
	case ChatDetailTypeUser, ChatDetailTypeSystem, ChatDetailTypeBot:
		return true
	default:
		return false
	}
}

// ChatDetail はChat内の1メッセージを表す。
type ChatDetail struct {
	ID        int64
	ChatID    int64
	Detail    string
	Type      ChatDetailType
	Order     int
	Active    bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}
