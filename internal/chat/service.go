// Package chat はユーザーの問い合わせ履歴（チャットと明細）を管理する。
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/ragapi/internal/model"
	"github.com/hitoshi/ragapi/internal/repository"
	"github.com/hitoshi/ragapi/internal/security"
)

// CreateInput はチャット登録の入力。
type CreateInput struct {
	UserID          int64
	SessionID       string // 空の場合は新しいセッションIDを採番する
	Message         string
	Response        *string
	SourceDocuments *string
}

// DetailInput はチャット明細追加の入力。
type DetailInput struct {
	Detail string
	Type   model.ChatDetailType
}

// Service はチャットのサービス層。
type Service struct {
	repo      repository.ChatRepository
	sanitizer security.ContentSanitizer
	newID     func() string
}

// NewService はServiceを生成する。
func NewService(repo repository.ChatRepository, sanitizer security.ContentSanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer, newID: uuid.NewString}
}

// Create はチャットを登録する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Chat, error) {
	message := s.sanitizer.PlainText(in.Message)
	if in.UserID <= 0 {
		return nil, model.NewValidationError("idUserは必須です。")
	}
	if message == "" {
		return nil, model.NewValidationError("messageは必須です。")
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = s.newID()
	}

	c := &model.Chat{
		UserID:          in.UserID,
		SessionID:       sessionID,
		Message:         message,
		Response:        s.plainPtr(in.Response),
		SourceDocuments: in.SourceDocuments,
		Active:          true,
	}
	if err := model.FirstError(
		model.CheckLength("session_id", c.SessionID, model.MaxSessionIDLength),
		model.CheckLength("message", c.Message, model.MaxMessageLength),
		model.CheckOptionalLength("response", c.Response, model.MaxResponseLength),
		model.CheckOptionalLength("source_documents", c.SourceDocuments, model.MaxSourceDocumentsLength),
	); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if mapped := repository.ToAPIError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("チャットの登録に失敗しました: %w", err)
	}
	return c, nil
}

func (s *Service) plainPtr(v *string) *string {
	if v == nil {
		return nil
	}
	p := s.sanitizer.PlainText(*v)
	return &p
}

// Get は指定IDのチャットを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Chat, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("チャットの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewChatNotFoundError(id)
	}
	return c, nil
}

// ListByUser は指定ユーザーのチャットを新しい順に返す。
func (s *Service) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*model.Chat, error) {
	chats, err := s.repo.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("チャット一覧の取得に失敗しました: %w", err)
	}
	return chats, nil
}

// Update は応答などの指定された項目のみ更新する。
func (s *Service) Update(ctx context.Context, id int64, patch model.ChatPatch) (*model.Chat, error) {
	if patch.Active.Cleared() {
		return nil, model.NewValidationError("swtにnullは指定できません。")
	}
	if patch.Response.Set && !patch.Response.Null {
		patch.Response.Value = s.sanitizer.PlainText(patch.Response.Value)
	}
	if err := model.FirstError(
		model.CheckFieldLength("response", patch.Response, model.MaxResponseLength),
		model.CheckFieldLength("source_documents", patch.SourceDocuments, model.MaxSourceDocumentsLength),
	); err != nil {
		return nil, err
	}

	c, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("チャットの更新に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewChatNotFoundError(id)
	}
	return c, nil
}

// Delete はチャットを削除する。明細も削除される。
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("チャットの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewChatNotFoundError(id)
	}
	return nil
}

// AddDetail はチャットに明細を追加する。順序は追加順に採番される。
func (s *Service) AddDetail(ctx context.Context, chatID int64, in DetailInput) (*model.ChatDetail, error) {
	detail := s.sanitizer.PlainText(in.Detail)
	if detail == "" {
		return nil, model.NewValidationError("detailは必須です。")
	}
	if !in.Type.Valid() {
		return nil, model.NewValidationError("typeはuser, system, botのいずれかを指定してください。")
	}
	if err := model.CheckLength("detail", detail, model.MaxDetailLength); err != nil {
		return nil, err
	}

	d := &model.ChatDetail{
		ChatID: chatID,
		Detail: detail,
		Type:   in.Type,
		Active: true,
	}
	if err := s.repo.AddDetail(ctx, d); err != nil {
		if errors.Is(err, repository.ErrReferenceViolation) {
			return nil, model.NewChatNotFoundError(chatID)
		}
		return nil, fmt.Errorf("チャット明細の追加に失敗しました: %w", err)
	}
	return d, nil
}

// ListDetails はチャットの明細を順序どおりに返す。
func (s *Service) ListDetails(ctx context.Context, chatID int64) ([]*model.ChatDetail, error) {
	if _, err := s.Get(ctx, chatID); err != nil {
		return nil, err
	}
	details, err := s.repo.ListDetails(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("チャット明細の取得に失敗しました: %w", err)
	}
	return details, nil
}
