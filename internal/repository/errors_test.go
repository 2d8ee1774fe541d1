package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/ragapi/internal/model"
)

func TestClassifyError(t *testing.T) {
	t.Run("一意制約違反", func(t *testing.T) {
		err := classifyError(&pq.Error{Code: "23505", Constraint: "users_email_key"}, "insert user")
		require.ErrorIs(t, err, ErrDuplicate)
		require.NotErrorIs(t, err, ErrReferenceViolation)
		require.Equal(t, "users_email_key", ConstraintName(err))
	})

	t.Run("外部キー違反", func(t *testing.T) {
		err := classifyError(&pq.Error{Code: "23503", Constraint: "documents_id_client_fkey"}, "insert document")
		require.ErrorIs(t, err, ErrReferenceViolation)
		require.Equal(t, "documents_id_client_fkey", ConstraintName(err))
	})

	t.Run("その他のエラーはラップする", func(t *testing.T) {
		base := errors.New("connection reset")
		err := classifyError(base, "insert chat")
		require.ErrorIs(t, err, base)
		require.Contains(t, err.Error(), "failed to insert chat")
		require.Empty(t, ConstraintName(err))
	})
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "既知の一意制約",
			err:      &ConstraintError{Kind: ErrDuplicate, Constraint: "clients_ruc_key"},
			wantCode: model.ErrCodeConflict,
			wantMsg:  "同じRUCのクライアントが既に存在します。",
		},
		{
			name:     "未知の一意制約",
			err:      &ConstraintError{Kind: ErrDuplicate, Constraint: "something_key"},
			wantCode: model.ErrCodeConflict,
			wantMsg:  "一意制約に違反しています。",
		},
		{
			name:     "既知の外部キー",
			err:      fmt.Errorf("wrapped: %w", &ConstraintError{Kind: ErrReferenceViolation, Constraint: "chats_id_user_fkey"}),
			wantCode: model.ErrCodeInvalidReference,
			wantMsg:  "指定されたユーザーが存在しません。",
		},
		{
			name:     "未知の外部キー",
			err:      &ConstraintError{Kind: ErrReferenceViolation, Constraint: "x_fkey"},
			wantCode: model.ErrCodeInvalidReference,
			wantMsg:  "参照先のレコードが存在しません。",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *model.APIError
			require.ErrorAs(t, ToAPIError(tt.err), &apiErr)
			require.Equal(t, tt.wantCode, apiErr.Code)
			require.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestToAPIError_PassesThroughOtherErrors(t *testing.T) {
	base := errors.New("db down")
	require.Same(t, base, ToAPIError(base))
}

func TestDeleteToAPIError(t *testing.T) {
	var apiErr *model.APIError
	err := DeleteToAPIError(&ConstraintError{Kind: ErrReferenceViolation, Constraint: "users_id_client_fkey"})
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, model.ErrCodeConflict, apiErr.Code)

	base := errors.New("timeout")
	require.Same(t, base, DeleteToAPIError(base))
}
