package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/ragapi/internal/identity"
	"github.com/hitoshi/ragapi/internal/model"
	"github.com/hitoshi/ragapi/internal/repository"
	"github.com/hitoshi/ragapi/internal/saga"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id int64) (*model.User, error)
	createFn   func(ctx context.Context, user *model.User) error
	updateFn   func(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error)
	deleteFn   func(ctx context.Context, id int64) (bool, error)
	creates    int
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	return []*model.User{}, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	m.creates++
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	return m.updateFn(ctx, id, patch)
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return m.deleteFn(ctx, id)
}

// mockGateway は呼び出し順を記録する。
type mockGateway struct {
	createAccountFn func(ctx context.Context, desired, email string) (string, error)
	setPasswordFn   func(ctx context.Context, providerUsername, password string) error
	calls           []string
	deleted         []string
}

func (m *mockGateway) CreateAccount(ctx context.Context, desired, email string) (string, error) {
	m.calls = append(m.calls, "create:"+desired)
	if m.createAccountFn != nil {
		return m.createAccountFn(ctx, desired, email)
	}
	return "provider-" + desired, nil
}

func (m *mockGateway) SetPermanentCredential(ctx context.Context, providerUsername, password string) error {
	m.calls = append(m.calls, "set_password:"+providerUsername)
	if m.setPasswordFn != nil {
		return m.setPasswordFn(ctx, providerUsername, password)
	}
	return nil
}

func (m *mockGateway) DeleteAccount(ctx context.Context, providerUsername string) {
	m.calls = append(m.calls, "delete:"+providerUsername)
	m.deleted = append(m.deleted, providerUsername)
}

func validInput() CreateInput {
	return CreateInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "P@ssw0rd!",
		ClientID: 1,
	}
}

func newTestService(repo *mockUserRepo, gw *mockGateway, opts Options) *Service {
	return NewService(repo, gw, saga.NewRunner(nil, nil), opts)
}

func requireAPIError(t *testing.T, err error, code string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

// --- Create テスト ---

func TestService_Create_Success(t *testing.T) {
	repo := &mockUserRepo{}
	gw := &mockGateway{
		createAccountFn: func(ctx context.Context, desired, email string) (string, error) {
			return "8f14e45f-uuid", nil
		},
	}
	svc := newTestService(repo, gw, Options{})

	u, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, "alice@example.com", u.Email)
	require.True(t, u.Active)
	require.Equal(t, "8f14e45f-uuid", *u.ProviderUsername)
	require.Equal(t, []string{"create:alice@example.com", "set_password:8f14e45f-uuid"}, gw.calls)
}

// ローカル作成に失敗した場合、Cognitoが返したユーザー名で補償削除される
func TestService_Create_InsertFailureCompensatesWithProviderUsername(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return &repository.ConstraintError{
				Kind:       repository.ErrDuplicate,
				Constraint: "users_email_key",
				Err:        &pq.Error{Code: "23505"},
			}
		},
	}
	gw := &mockGateway{
		createAccountFn: func(ctx context.Context, desired, email string) (string, error) {
			return "generated-by-cognito", nil
		},
	}
	svc := newTestService(repo, gw, Options{})

	_, err := svc.Create(context.Background(), validInput())
	requireAPIError(t, err, model.ErrCodeConflict)
	require.Equal(t, []string{"generated-by-cognito"}, gw.deleted)
	require.Equal(t, "delete:generated-by-cognito", gw.calls[len(gw.calls)-1])
}

func TestService_Create_InsertPanicStillCompensates(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			panic("driver exploded")
		},
	}
	gw := &mockGateway{}
	svc := newTestService(repo, gw, Options{})

	require.Panics(t, func() {
		_, _ = svc.Create(context.Background(), validInput())
	})
	require.Equal(t, []string{"provider-alice@example.com"}, gw.deleted)
}

func TestService_Create_StoreErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error { return boom },
	}
	gw := &mockGateway{}
	svc := newTestService(repo, gw, Options{})

	_, err := svc.Create(context.Background(), validInput())
	require.ErrorIs(t, err, boom)
	var apiErr *model.APIError
	require.False(t, errors.As(err, &apiErr))
	require.Len(t, gw.deleted, 1)
}

func TestService_Create_UnknownClient(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return &repository.ConstraintError{Kind: repository.ErrReferenceViolation, Constraint: "users_id_client_fkey"}
		},
	}
	gw := &mockGateway{}
	svc := newTestService(repo, gw, Options{})

	_, err := svc.Create(context.Background(), validInput())
	requireAPIError(t, err, model.ErrCodeInvalidReference)
	require.Len(t, gw.deleted, 1)
}

// Cognitoアカウント作成に失敗した場合、以降の処理は一切行わない
func TestService_Create_AccountFailureShortCircuits(t *testing.T) {
	repo := &mockUserRepo{}
	gw := &mockGateway{
		createAccountFn: func(ctx context.Context, desired, email string) (string, error) {
			return "", &identity.ProviderError{Op: "AdminCreateUser", Code: "UsernameExistsException", Message: "User account already exists"}
		},
	}
	svc := newTestService(repo, gw, Options{})

	_, err := svc.Create(context.Background(), validInput())
	apiErr := requireAPIError(t, err, model.ErrCodeProvider)
	require.Contains(t, apiErr.Message, "UsernameExistsException")
	require.Equal(t, []string{"create:alice@example.com"}, gw.calls)
	require.Zero(t, repo.creates)
	require.Empty(t, gw.deleted)
}

func TestService_Create_SetPasswordFailureCompensates(t *testing.T) {
	repo := &mockUserRepo{}
	gw := &mockGateway{
		createAccountFn: func(ctx context.Context, desired, email string) (string, error) {
			return "p-1", nil
		},
		setPasswordFn: func(ctx context.Context, providerUsername, password string) error {
			return &identity.ProviderError{Op: "AdminSetUserPassword", Code: "InvalidPasswordException", Message: "Password did not conform with policy"}
		},
	}
	svc := newTestService(repo, gw, Options{})

	_, err := svc.Create(context.Background(), validInput())
	requireAPIError(t, err, model.ErrCodeProvider)
	require.Zero(t, repo.creates)
	require.Equal(t, []string{"p-1"}, gw.deleted)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *CreateInput)
	}{
		{"usernameが空", func(in *CreateInput) { in.Username = "  " }},
		{"emailが不正", func(in *CreateInput) { in.Email = "nope" }},
		{"passwordが空", func(in *CreateInput) { in.Password = "" }},
		{"idClientが未指定", func(in *CreateInput) { in.ClientID = 0 }},
		{"usernameが51文字", func(in *CreateInput) { in.Username = strings.Repeat("a", 51) }},
		{"emailが101文字", func(in *CreateInput) { in.Email = strings.Repeat("a", 89) + "@example.com" }},
		{"full_nameが101文字", func(in *CreateInput) { in.FullName = ptr(strings.Repeat("n", 101)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{}
			svc := newTestService(&mockUserRepo{}, gw, Options{})

			in := validInput()
			tt.modify(&in)
			_, err := svc.Create(context.Background(), in)
			requireAPIError(t, err, model.ErrCodeValidation)
			require.Empty(t, gw.calls)
		})
	}
}

// VARCHARは文字数で制限されるため、マルチバイト文字でも50文字までは登録できる
func TestService_Create_UsernameLengthCountsRunes(t *testing.T) {
	gw := &mockGateway{}
	repo := &mockUserRepo{}
	svc := newTestService(repo, gw, Options{})

	in := validInput()
	in.Username = strings.Repeat("ñ", 50)
	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 1, repo.creates)
}

func TestService_Update_RejectsTooLongUsername(t *testing.T) {
	repo := &mockUserRepo{
		updateFn: func(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
			t.Fatal("repository should not be called")
			return nil, nil
		},
	}
	svc := newTestService(repo, &mockGateway{}, Options{})

	_, err := svc.Update(context.Background(), 1, model.UserPatch{Username: model.SetTo(strings.Repeat("a", 51))})
	requireAPIError(t, err, model.ErrCodeValidation)
}

// --- Get / Update / Delete テスト ---

func TestService_Get_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockGateway{}, Options{})

	_, err := svc.Get(context.Background(), 42)
	requireAPIError(t, err, model.ErrCodeUserNotFound)
}

func TestService_Update_RejectsNullRequired(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockGateway{}, Options{})

	_, err := svc.Update(context.Background(), 1, model.UserPatch{Email: model.SetNull[string]()})
	requireAPIError(t, err, model.ErrCodeValidation)
}

func TestService_Update_NormalizesEmail(t *testing.T) {
	var got model.UserPatch
	repo := &mockUserRepo{
		updateFn: func(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
			got = patch
			return &model.User{ID: id, Email: patch.Email.Value}, nil
		},
	}
	svc := newTestService(repo, &mockGateway{}, Options{})

	u, err := svc.Update(context.Background(), 1, model.UserPatch{Email: model.SetTo(" Bob@Example.com ")})
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", got.Email.Value)
	require.False(t, got.Username.Set)
	require.Equal(t, "bob@example.com", u.Email)
}

func TestService_Update_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		updateFn: func(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo, &mockGateway{}, Options{})

	_, err := svc.Update(context.Background(), 9, model.UserPatch{FullName: model.SetTo("X")})
	requireAPIError(t, err, model.ErrCodeUserNotFound)
}

func TestService_Delete(t *testing.T) {
	providerUsername := "p-7"
	existing := &model.User{ID: 7, ProviderUsername: &providerUsername}

	tests := []struct {
		name        string
		opts        Options
		deleted     bool
		wantCode    string
		wantDeleted []string
	}{
		{"ローカルのみ削除", Options{}, true, "", nil},
		{"Cognitoアカウントも削除", Options{DeleteProviderAccount: true}, true, "", []string{"p-7"}},
		{"該当なし", Options{}, false, model.ErrCodeUserNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepo{
				findByIDFn: func(ctx context.Context, id int64) (*model.User, error) { return existing, nil },
				deleteFn:   func(ctx context.Context, id int64) (bool, error) { return tt.deleted, nil },
			}
			gw := &mockGateway{}
			svc := newTestService(repo, gw, tt.opts)

			err := svc.Delete(context.Background(), 7)
			if tt.wantCode != "" {
				requireAPIError(t, err, tt.wantCode)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantDeleted, gw.deleted)
		})
	}
}

func TestService_Delete_ReferencedByChats(t *testing.T) {
	repo := &mockUserRepo{
		deleteFn: func(ctx context.Context, id int64) (bool, error) {
			return false, &repository.ConstraintError{Kind: repository.ErrReferenceViolation, Constraint: "chats_id_user_fkey"}
		},
	}
	svc := newTestService(repo, &mockGateway{}, Options{})

	err := svc.Delete(context.Background(), 7)
	requireAPIError(t, err, model.ErrCodeConflict)
}

func ptr(s string) *string {
	return &s
}
