package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ragapi/internal/middleware"
	"github.com/hitoshi/ragapi/internal/model"
)

// 一覧取得のページング設定
const (
	defaultLimit = 100
	maxLimit     = 1000
)

// deletedResponse は削除成功時のレスポンス。
type deletedResponse struct {
	Detail string `json:"detail"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func writeDeleted(w http.ResponseWriter, label string) {
	writeJSON(w, http.StatusOK, deletedResponse{Detail: label + "を削除しました。"})
}

func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case model.ErrCodeValidation, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeProvider, model.ErrCodeInvalidReference:
		return http.StatusBadRequest
	case model.ErrCodeConflict:
		return http.StatusConflict
	case model.ErrCodeUserNotFound, model.ErrCodeClientNotFound, model.ErrCodeTableNotFound,
		model.ErrCodeDocumentNotFound, model.ErrCodeChatNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はリクエストボディをvに読み込む。失敗した場合は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// parseIDParam はURLパスパラメータのIDを解析する。失敗した場合は400を書き込みfalseを返す。
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("IDは正の整数で指定してください。"))
		return 0, false
	}
	return id, true
}

// parsePagination はskipとlimitのクエリパラメータを解析する。
// 省略時はskip=0、limit=100。limitは1000で打ち切る。負の値は400とする。
func parsePagination(w http.ResponseWriter, r *http.Request) (offset, limit int, ok bool) {
	q := r.URL.Query()

	offset, ok = queryInt(w, q.Get("skip"), "skip", 0)
	if !ok {
		return 0, 0, false
	}
	limit, ok = queryInt(w, q.Get("limit"), "limit", defaultLimit)
	if !ok {
		return 0, 0, false
	}
	return offset, min(limit, maxLimit), true
}

func queryInt(w http.ResponseWriter, raw, name string, defaultVal int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultVal, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError(name+"は0以上の整数で指定してください。"))
		return 0, false
	}
	return v, true
}
