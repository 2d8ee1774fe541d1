package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/ragapi/internal/model"
	"github.com/hitoshi/ragapi/internal/tables"
)

// TableServiceInterface はテーブル定義ハンドラーが必要とするサービスインターフェース。
type TableServiceInterface interface {
	Create(ctx context.Context, in tables.CreateInput) (*model.TableXClient, error)
	Get(ctx context.Context, id int64) (*model.TableXClient, error)
	List(ctx context.Context, offset, limit int) ([]*model.TableXClient, error)
	Update(ctx context.Context, id int64, patch model.TableXClientPatch) (*model.TableXClient, error)
	Delete(ctx context.Context, id int64) error
}

// TableHandler はクライアント別テーブル定義のHTTPハンドラー。
type TableHandler struct {
	service TableServiceInterface
}

// NewTableHandler はTableHandlerを生成する。
func NewTableHandler(service TableServiceInterface) *TableHandler {
	return &TableHandler{service: service}
}

type createTableRequest struct {
	ClientID    int64   `json:"idClient"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"swt"`
}

type tableResponse struct {
	ID          int64      `json:"id"`
	ClientID    int64      `json:"idClient"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Active      bool       `json:"swt"`
	CreateDate  time.Time  `json:"createDate"`
	UpdateDate  *time.Time `json:"updateDate"`
}

func toTableResponse(t *model.TableXClient) tableResponse {
	return tableResponse{
		ID:          t.ID,
		ClientID:    t.ClientID,
		Name:        t.Name,
		Description: t.Description,
		Active:      t.Active,
		CreateDate:  t.CreatedAt,
		UpdateDate:  t.UpdatedAt,
	}
}

// CreateTable はテーブル定義を登録する。
// POST /tablesXclient
func (h *TableHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.Create(r.Context(), tables.CreateInput{
		ClientID:    req.ClientID,
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}

// ListTables はテーブル定義の一覧を返す。
// GET /tablesXclient?skip=0&limit=100
func (h *TableHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(r.Context(), offset, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]tableResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, toTableResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTable はテーブル定義を1件返す。
// GET /tablesXclient/{id}
func (h *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}

// UpdateTable は指定された項目のみ更新する。
// PUT/PATCH /tablesXclient/{id}
func (h *TableHandler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var patch model.TableXClientPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	t, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}

// DeleteTable はテーブル定義を削除する。
// DELETE /tablesXclient/{id}
func (h *TableHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeDeleted(w, "テーブル")
}
