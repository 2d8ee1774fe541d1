package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/ragapi/internal/chat"
	"github.com/hitoshi/ragapi/internal/model"
)

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	Create(ctx context.Context, in chat.CreateInput) (*model.Chat, error)
	Get(ctx context.Context, id int64) (*model.Chat, error)
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*model.Chat, error)
	Update(ctx context.Context, id int64, patch model.ChatPatch) (*model.Chat, error)
	Delete(ctx context.Context, id int64) error
	AddDetail(ctx context.Context, chatID int64, in chat.DetailInput) (*model.ChatDetail, error)
	ListDetails(ctx context.Context, chatID int64) ([]*model.ChatDetail, error)
}

// ChatHandler はチャット履歴のHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
	users   UserServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
// usersはユーザー別一覧でユーザーの存在確認に使う。
func NewChatHandler(service ChatServiceInterface, users UserServiceInterface) *ChatHandler {
	return &ChatHandler{service: service, users: users}
}

type createChatRequest struct {
	UserID          int64   `json:"idUser"`
	SessionID       string  `json:"session_id"`
	Message         string  `json:"message"`
	Response        *string `json:"response"`
	SourceDocuments *string `json:"source_documents"`
}

type addDetailRequest struct {
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type chatResponse struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"idUser"`
	SessionID       string     `json:"session_id"`
	Message         string     `json:"message"`
	Response        *string    `json:"response"`
	SourceDocuments *string    `json:"source_documents"`
	Active          bool       `json:"swt"`
	CreateDate      time.Time  `json:"createDate"`
	UpdateDate      *time.Time `json:"updateDate"`
}

type chatDetailResponse struct {
	ID         int64      `json:"id"`
	ChatID     int64      `json:"idChat"`
	Detail     string     `json:"detail"`
	Type       string     `json:"type"`
	Order      int        `json:"order"`
	Active     bool       `json:"swt"`
	CreateDate time.Time  `json:"createDate"`
	UpdateDate *time.Time `json:"updateDate"`
}

func toChatResponse(c *model.Chat) chatResponse {
	return chatResponse{
		ID:              c.ID,
		UserID:          c.UserID,
		SessionID:       c.SessionID,
		Message:         c.Message,
		Response:        c.Response,
		SourceDocuments: c.SourceDocuments,
		Active:          c.Active,
		CreateDate:      c.CreatedAt,
		UpdateDate:      c.UpdatedAt,
	}
}

func toChatDetailResponse(d *model.ChatDetail) chatDetailResponse {
	return chatDetailResponse{
		ID:         d.ID,
		ChatID:     d.ChatID,
		Detail:     d.Detail,
		Type:       string(d.Type),
		Order:      d.Order,
		Active:     d.Active,
		CreateDate: d.CreatedAt,
		UpdateDate: d.UpdatedAt,
	}
}

// CreateChat はチャットを登録する。session_idを省略した場合は新しいセッションになる。
// POST /chats
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), chat.CreateInput{
		UserID:          req.UserID,
		SessionID:       req.SessionID,
		Message:         req.Message,
		Response:        req.Response,
		SourceDocuments: req.SourceDocuments,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(c))
}

// GetChat はチャットを1件返す。
// GET /chats/{id}
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(c))
}

// UpdateChat は応答などの指定された項目のみ更新する。
// PUT/PATCH /chats/{id}
func (h *ChatHandler) UpdateChat(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var patch model.ChatPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	c, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(c))
}

// DeleteChat はチャットと明細を削除する。
// DELETE /chats/{id}
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeDeleted(w, "チャット")
}

// AddDetail はチャットに明細を追加する。
// POST /chats/{id}/details
func (h *ChatHandler) AddDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req addDetailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.service.AddDetail(r.Context(), id, chat.DetailInput{
		Detail: req.Detail,
		Type:   model.ChatDetailType(req.Type),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatDetailResponse(d))
}

// ListDetails はチャットの明細を順序どおりに返す。
// GET /chats/{id}/details
func (h *ChatHandler) ListDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	details, err := h.service.ListDetails(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]chatDetailResponse, 0, len(details))
	for _, d := range details {
		resp = append(resp, toChatDetailResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListUserChats はユーザーのチャットを新しい順に返す。
// GET /users/{id}/chats?skip=0&limit=100
func (h *ChatHandler) ListUserChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	offset, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}

	// 存在しないユーザーは空配列ではなく404とする
	if _, err := h.users.Get(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	chats, err := h.service.ListByUser(r.Context(), userID, offset, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]chatResponse, 0, len(chats))
	for _, c := range chats {
		resp = append(resp, toChatResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}
