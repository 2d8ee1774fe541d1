package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hitoshi/ragapi/internal/model"
	"github.com/hitoshi/ragapi/internal/repository"
	"github.com/hitoshi/ragapi/internal/security"
)

// --- モック定義 ---

type mockRepo struct {
	chats       map[int64]*model.Chat
	createErr   error
	addDetailFn func(ctx context.Context, d *model.ChatDetail) error
	details     []*model.ChatDetail
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*model.Chat, error) {
	return m.chats[id], nil
}

func (m *mockRepo) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*model.Chat, error) {
	return []*model.Chat{}, nil
}

func (m *mockRepo) Create(ctx context.Context, c *model.Chat) error {
	if m.createErr != nil {
		return m.createErr
	}
	c.ID = 10
	return nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, patch model.ChatPatch) (*model.Chat, error) {
	c, ok := m.chats[id]
	if !ok {
		return nil, nil
	}
	if patch.Response.Set {
		c.Response = patch.Response.Ptr()
	}
	return c, nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) (bool, error) {
	_, ok := m.chats[id]
	return ok, nil
}

func (m *mockRepo) AddDetail(ctx context.Context, d *model.ChatDetail) error {
	return m.addDetailFn(ctx, d)
}

func (m *mockRepo) ListDetails(ctx context.Context, chatID int64) ([]*model.ChatDetail, error) {
	return m.details, nil
}

func newTestService(repo *mockRepo) *Service {
	svc := NewService(repo, security.NewContentSanitizer())
	svc.newID = func() string { return "fixed-session" }
	return svc
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code)
}

// --- テスト ---

func TestService_Create_GeneratesSessionID(t *testing.T) {
	svc := newTestService(&mockRepo{})

	c, err := svc.Create(context.Background(), CreateInput{UserID: 1, Message: "¿Cuál es mi saldo?"})
	require.NoError(t, err)
	require.Equal(t, "fixed-session", c.SessionID)
	require.Equal(t, "¿Cuál es mi saldo?", c.Message)
	require.True(t, c.Active)
}

func TestService_Create_KeepsGivenSessionID(t *testing.T) {
	svc := newTestService(&mockRepo{})

	c, err := svc.Create(context.Background(), CreateInput{UserID: 1, SessionID: "s-42", Message: "hola"})
	require.NoError(t, err)
	require.Equal(t, "s-42", c.SessionID)
}

func TestService_Create_DefaultIDIsUUID(t *testing.T) {
	svc := NewService(&mockRepo{}, security.NewContentSanitizer())

	c, err := svc.Create(context.Background(), CreateInput{UserID: 1, Message: "hola"})
	require.NoError(t, err)
	require.Len(t, c.SessionID, 36)
}

func TestService_Create_UnknownUser(t *testing.T) {
	repo := &mockRepo{createErr: &repository.ConstraintError{Kind: repository.ErrReferenceViolation, Constraint: "chats_id_user_fkey"}}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{UserID: 404, Message: "hola"})
	requireCode(t, err, model.ErrCodeInvalidReference)
}

func TestService_Create_StripsMarkup(t *testing.T) {
	svc := newTestService(&mockRepo{})

	_, err := svc.Create(context.Background(), CreateInput{UserID: 1, Message: "<script>x</script>"})
	requireCode(t, err, model.ErrCodeValidation)
}

func TestService_AddDetail(t *testing.T) {
	repo := &mockRepo{
		addDetailFn: func(ctx context.Context, d *model.ChatDetail) error {
			d.ID = 1
			d.Order = 1
			return nil
		},
	}
	svc := newTestService(repo)

	d, err := svc.AddDetail(context.Background(), 10, DetailInput{Detail: "hola", Type: model.ChatDetailTypeUser})
	require.NoError(t, err)
	require.Equal(t, 1, d.Order)
	require.Equal(t, int64(10), d.ChatID)
}

func TestService_AddDetail_InvalidType(t *testing.T) {
	svc := newTestService(&mockRepo{})

	_, err := svc.AddDetail(context.Background(), 10, DetailInput{Detail: "hola", Type: "admin"})
	requireCode(t, err, model.ErrCodeValidation)
}

func TestService_AddDetail_ChatMissing(t *testing.T) {
	repo := &mockRepo{
		addDetailFn: func(ctx context.Context, d *model.ChatDetail) error {
			return &repository.ConstraintError{Kind: repository.ErrReferenceViolation, Constraint: "chat_details_id_chat_fkey"}
		},
	}
	svc := newTestService(repo)

	_, err := svc.AddDetail(context.Background(), 10, DetailInput{Detail: "hola", Type: model.ChatDetailTypeBot})
	requireCode(t, err, model.ErrCodeChatNotFound)
}

func TestService_ListDetails_ChatMissing(t *testing.T) {
	svc := newTestService(&mockRepo{chats: map[int64]*model.Chat{}})

	_, err := svc.ListDetails(context.Background(), 10)
	requireCode(t, err, model.ErrCodeChatNotFound)
}

func TestService_Update_Response(t *testing.T) {
	repo := &mockRepo{chats: map[int64]*model.Chat{3: {ID: 3, Message: "q"}}}
	svc := newTestService(repo)

	c, err := svc.Update(context.Background(), 3, model.ChatPatch{Response: model.SetTo("<p>respuesta</p>")})
	require.NoError(t, err)
	require.Equal(t, "respuesta", *c.Response)
}

func TestService_Create_TooLongMessage(t *testing.T) {
	repo := &mockRepo{createErr: errors.New("repository should not be called")}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{UserID: 1, Message: strings.Repeat("m", 1001)})
	requireCode(t, err, model.ErrCodeValidation)

	_, err = svc.Create(context.Background(), CreateInput{UserID: 1, SessionID: strings.Repeat("s", 101), Message: "hola"})
	requireCode(t, err, model.ErrCodeValidation)
}

func TestService_AddDetail_TooLong(t *testing.T) {
	repo := &mockRepo{
		addDetailFn: func(ctx context.Context, d *model.ChatDetail) error {
			t.Fatal("repository should not be called")
			return nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.AddDetail(context.Background(), 1, DetailInput{Detail: strings.Repeat("d", 2001), Type: model.ChatDetailTypeBot})
	requireCode(t, err, model.ErrCodeValidation)
}
