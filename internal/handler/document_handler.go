package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/ragapi/internal/document"
	"github.com/hitoshi/ragapi/internal/model"
)

// DocumentServiceInterface はドキュメントハンドラーが必要とするサービスインターフェース。
type DocumentServiceInterface interface {
	Create(ctx context.Context, in document.CreateInput) (*model.Document, error)
	Get(ctx context.Context, id int64) (*model.Document, error)
	List(ctx context.Context, clientID int64, offset, limit int) ([]*model.Document, error)
	Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.Document, error)
	Delete(ctx context.Context, id int64) error
}

// DocumentHandler はドキュメント管理のHTTPハンドラー。
type DocumentHandler struct {
	service DocumentServiceInterface
}

// NewDocumentHandler はDocumentHandlerを生成する。
func NewDocumentHandler(service DocumentServiceInterface) *DocumentHandler {
	return &DocumentHandler{service: service}
}

type createDocumentRequest struct {
	ClientID int64   `json:"idClient"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	FilePath *string `json:"file_path"`
	Active   *bool   `json:"swt"`
}

type documentResponse struct {
	ID         int64      `json:"id"`
	ClientID   int64      `json:"idClient"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	FilePath   *string    `json:"file_path"`
	Active     bool       `json:"swt"`
	CreateDate time.Time  `json:"createDate"`
	UpdateDate *time.Time `json:"updateDate"`
}

func toDocumentResponse(d *model.Document) documentResponse {
	return documentResponse{
		ID:         d.ID,
		ClientID:   d.ClientID,
		Title:      d.Title,
		Content:    d.Content,
		FilePath:   d.FilePath,
		Active:     d.Active,
		CreateDate: d.CreatedAt,
		UpdateDate: d.UpdatedAt,
	}
}

// CreateDocument はドキュメントを登録する。
// POST /documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.service.Create(r.Context(), document.CreateInput{
		ClientID: req.ClientID,
		Title:    req.Title,
		Content:  req.Content,
		FilePath: req.FilePath,
		Active:   req.Active,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(d))
}

// ListDocuments はドキュメント一覧を返す。idClientを指定した場合はそのクライアントのみに絞り込む。
// GET /documents?idClient=1&skip=0&limit=100
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	clientID, ok := queryInt(w, r.URL.Query().Get("idClient"), "idClient", 0)
	if !ok {
		return
	}

	docs, err := h.service.List(r.Context(), int64(clientID), offset, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDocument はドキュメントを1件返す。
// GET /documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(d))
}

// UpdateDocument は指定された項目のみ更新する。
// PUT/PATCH /documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var patch model.DocumentPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	d, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(d))
}

// DeleteDocument はドキュメントを削除する。
// DELETE /documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeDeleted(w, "ドキュメント")
}
