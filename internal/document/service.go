// Package document はRAGの検索対象となるドキュメントを管理する。
package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/ragapi/internal/model"
	"github.com/hitoshi/ragapi/internal/repository"
	"github.com/hitoshi/ragapi/internal/security"
)

// CreateInput はドキュメント登録の入力。
type CreateInput struct {
	ClientID int64
	Title    string
	Content  string
	FilePath *string
	Active   *bool
}

// Service はドキュメントのサービス層。タイトルと本文は保存前に無害化する。
type Service struct {
	repo      repository.DocumentRepository
	sanitizer security.ContentSanitizer
}

// NewService はServiceを生成する。
func NewService(repo repository.DocumentRepository, sanitizer security.ContentSanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// Create はドキュメントを登録する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Document, error) {
	title := s.sanitizer.PlainText(in.Title)
	content := strings.TrimSpace(s.sanitizer.SanitizeHTML(in.Content))
	switch {
	case in.ClientID <= 0:
		return nil, model.NewValidationError("idClientは必須です。")
	case title == "":
		return nil, model.NewValidationError("titleは必須です。")
	case content == "":
		return nil, model.NewValidationError("contentは必須です。")
	}
	if err := model.FirstError(
		model.CheckLength("title", title, model.MaxTitleLength),
		model.CheckLength("content", content, model.MaxContentLength),
		model.CheckOptionalLength("file_path", in.FilePath, model.MaxFilePathLength),
	); err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	d := &model.Document{
		ClientID: in.ClientID,
		Title:    title,
		Content:  content,
		FilePath: in.FilePath,
		Active:   active,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		if mapped := repository.ToAPIError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("ドキュメントの登録に失敗しました: %w", err)
	}

	slog.Info("ドキュメントを登録しました",
		slog.Int64("document_id", d.ID),
		slog.Int64("client_id", d.ClientID),
	)
	return d, nil
}

// Get は指定IDのドキュメントを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Document, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントの取得に失敗しました: %w", err)
	}
	if d == nil {
		return nil, model.NewDocumentNotFoundError(id)
	}
	return d, nil
}

// List はドキュメント一覧を返す。clientIDが0の場合は全クライアントが対象。
func (s *Service) List(ctx context.Context, clientID int64, offset, limit int) ([]*model.Document, error) {
	docs, err := s.repo.List(ctx, clientID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("ドキュメント一覧の取得に失敗しました: %w", err)
	}
	return docs, nil
}

// Update は指定された項目のみ更新する。
func (s *Service) Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.Document, error) {
	if patch.Title.Cleared() || patch.Content.Cleared() || patch.Active.Cleared() {
		return nil, model.NewValidationError("title, content, swtにnullは指定できません。")
	}
	if patch.Title.Set {
		patch.Title.Value = s.sanitizer.PlainText(patch.Title.Value)
		if patch.Title.Value == "" {
			return nil, model.NewValidationError("titleは必須です。")
		}
	}
	if patch.Content.Set {
		patch.Content.Value = strings.TrimSpace(s.sanitizer.SanitizeHTML(patch.Content.Value))
		if patch.Content.Value == "" {
			return nil, model.NewValidationError("contentは必須です。")
		}
	}
	if err := model.FirstError(
		model.CheckFieldLength("title", patch.Title, model.MaxTitleLength),
		model.CheckFieldLength("content", patch.Content, model.MaxContentLength),
		model.CheckFieldLength("file_path", patch.FilePath, model.MaxFilePathLength),
	); err != nil {
		return nil, err
	}

	d, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントの更新に失敗しました: %w", err)
	}
	if d == nil {
		return nil, model.NewDocumentNotFoundError(id)
	}
	return d, nil
}

// Delete はドキュメントを削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("ドキュメントの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewDocumentNotFoundError(id)
	}
	return nil
}
