package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/ragapi/internal/client"
	"github.com/hitoshi/ragapi/internal/model"
)

// ClientServiceInterface はクライアントハンドラーが必要とするサービスインターフェース。
type ClientServiceInterface interface {
	Create(ctx context.Context, in client.CreateInput) (*model.Client, error)
	Get(ctx context.Context, id int64) (*model.Client, error)
	List(ctx context.Context, offset, limit int) ([]*model.Client, error)
	Update(ctx context.Context, id int64, patch model.ClientPatch) (*model.Client, error)
	Delete(ctx context.Context, id int64) error
}

// ClientHandler はクライアント管理のHTTPハンドラー。
type ClientHandler struct {
	service ClientServiceInterface
}

// NewClientHandler はClientHandlerを生成する。
func NewClientHandler(service ClientServiceInterface) *ClientHandler {
	return &ClientHandler{service: service}
}

type createClientRequest struct {
	RUC          string  `json:"ruc"`
	Name         string  `json:"name"`
	APIKey       *string `json:"api_key"`
	ContactEmail *string `json:"contact_email"`
	Active       *bool   `json:"swt"`
}

type clientResponse struct {
	ID           int64      `json:"id"`
	RUC          string     `json:"ruc"`
	Name         string     `json:"name"`
	APIKey       *string    `json:"api_key"`
	ContactEmail *string    `json:"contact_email"`
	Active       bool       `json:"swt"`
	CreateDate   time.Time  `json:"createDate"`
	UpdateDate   *time.Time `json:"updateDate"`
}

func toClientResponse(c *model.Client) clientResponse {
	return clientResponse{
		ID:           c.ID,
		RUC:          c.RUC,
		Name:         c.Name,
		APIKey:       c.APIKey,
		ContactEmail: c.ContactEmail,
		Active:       c.Active,
		CreateDate:   c.CreatedAt,
		UpdateDate:   c.UpdatedAt,
	}
}

// CreateClient はクライアントを登録する。
// POST /clients
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), client.CreateInput{
		RUC:          req.RUC,
		Name:         req.Name,
		APIKey:       req.APIKey,
		ContactEmail: req.ContactEmail,
		Active:       req.Active,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(c))
}

// ListClients はクライアント一覧を返す。
// GET /clients?skip=0&limit=100
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}

	clients, err := h.service.List(r.Context(), offset, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, toClientResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetClient はクライアントを1件返す。
// GET /clients/{id}
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(c))
}

// UpdateClient は指定された項目のみ更新する。
// PUT/PATCH /clients/{id}
func (h *ClientHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var patch model.ClientPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	c, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(c))
}

// DeleteClient はクライアントを削除する。
// DELETE /clients/{id}
func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeDeleted(w, "クライアント")
}
