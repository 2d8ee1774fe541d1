// Package client はクライアント（契約企業）管理のドメインロジックを提供する。
package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/ragapi/internal/model"
	"github.com/hitoshi/ragapi/internal/repository"
)

// CreateInput はクライアント登録の入力。
type CreateInput struct {
	RUC          string
	Name         string
	APIKey       *string
	ContactEmail *string
	Active       *bool // nilの場合はtrue
}

// Service はクライアント管理のサービス層。
type Service struct {
	repo repository.ClientRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.ClientRepository) *Service {
	return &Service{repo: repo}
}

func validateRUC(ruc string) error {
	if ruc == "" {
		return model.NewValidationError("rucは必須です。")
	}
	return model.CheckLength("ruc", ruc, model.MaxRUCLength)
}

// ensureRUCAvailable は同じRUCの別クライアントが存在しないことを確認する。
// 同時登録はDBの一意制約で検出する。
func (s *Service) ensureRUCAvailable(ctx context.Context, ruc string, selfID int64) error {
	existing, err := s.repo.FindByRUC(ctx, ruc)
	if err != nil {
		return fmt.Errorf("クライアントの取得に失敗しました: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return model.NewConflictError("同じRUCのクライアントが既に存在します。")
	}
	return nil
}

// Create はクライアントを登録する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Client, error) {
	in.RUC = strings.TrimSpace(in.RUC)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateRUC(in.RUC); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, model.NewValidationError("nameは必須です。")
	}
	if err := model.FirstError(
		model.CheckLength("name", in.Name, model.MaxClientNameLength),
		model.CheckOptionalLength("api_key", in.APIKey, model.MaxAPIKeyLength),
		model.CheckOptionalLength("contact_email", in.ContactEmail, model.MaxEmailLength),
	); err != nil {
		return nil, err
	}
	if err := s.ensureRUCAvailable(ctx, in.RUC, 0); err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	c := &model.Client{
		RUC:          in.RUC,
		Name:         in.Name,
		APIKey:       in.APIKey,
		ContactEmail: in.ContactEmail,
		Active:       active,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if mapped := repository.ToAPIError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("クライアントの登録に失敗しました: %w", err)
	}

	slog.Info("クライアントを登録しました",
		slog.Int64("client_id", c.ID),
		slog.String("ruc", c.RUC),
	)
	return c, nil
}

// Get は指定IDのクライアントを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Client, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("クライアントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewClientNotFoundError(id)
	}
	return c, nil
}

// List はクライアント一覧を返す。
func (s *Service) List(ctx context.Context, offset, limit int) ([]*model.Client, error) {
	clients, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("クライアント一覧の取得に失敗しました: %w", err)
	}
	return clients, nil
}

// Update は指定された項目のみ更新する。
func (s *Service) Update(ctx context.Context, id int64, patch model.ClientPatch) (*model.Client, error) {
	if patch.RUC.Cleared() || patch.Name.Cleared() || patch.Active.Cleared() {
		return nil, model.NewValidationError("ruc, name, swtにnullは指定できません。")
	}
	if patch.RUC.Set {
		patch.RUC.Value = strings.TrimSpace(patch.RUC.Value)
		if err := validateRUC(patch.RUC.Value); err != nil {
			return nil, err
		}
		if err := s.ensureRUCAvailable(ctx, patch.RUC.Value, id); err != nil {
			return nil, err
		}
	}
	if patch.Name.Set {
		patch.Name.Value = strings.TrimSpace(patch.Name.Value)
		if patch.Name.Value == "" {
			return nil, model.NewValidationError("nameは必須です。")
		}
	}
	if err := model.FirstError(
		model.CheckFieldLength("name", patch.Name, model.MaxClientNameLength),
		model.CheckFieldLength("api_key", patch.APIKey, model.MaxAPIKeyLength),
		model.CheckFieldLength("contact_email", patch.ContactEmail, model.MaxEmailLength),
	); err != nil {
		return nil, err
	}

	c, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if mapped := repository.ToAPIError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("クライアントの更新に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewClientNotFoundError(id)
	}
	return c, nil
}

// Delete はクライアントを削除する。所属ユーザー等が存在する場合は競合エラーになる。
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if mapped := repository.DeleteToAPIError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("クライアントの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewClientNotFoundError(id)
	}
	slog.Info("クライアントを削除しました", slog.Int64("client_id", id))
	return nil
}
