// Package tables はクライアント別のテーブル定義を管理する。
package tables

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/ragapi/internal/model"
	"github.com/hitoshi/ragapi/internal/repository"
)

// CreateInput はテーブル定義登録の入力。
type CreateInput struct {
	ClientID    int64
	Name        string
	Description *string
	Active      *bool
}

// Service はテーブル定義のサービス層。
type Service struct {
	repo repository.TableXClientRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.TableXClientRepository) *Service {
	return &Service{repo: repo}
}

// Create はテーブル定義を登録する。存在しないクライアントを指定した場合は参照エラーになる。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.TableXClient, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.ClientID <= 0 {
		return nil, model.NewValidationError("idClientは必須です。")
	}
	if in.Name == "" {
		return nil, model.NewValidationError("nameは必須です。")
	}
	if err := model.FirstError(
		model.CheckLength("name", in.Name, model.MaxTableNameLength),
		model.CheckOptionalLength("description", in.Description, model.MaxDescriptionLength),
	); err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	t := &model.TableXClient{
		ClientID:    in.ClientID,
		Name:        in.Name,
		Description: in.Description,
		Active:      active,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		if mapped := repository.ToAPIError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("テーブル定義の登録に失敗しました: %w", err)
	}
	return t, nil
}

// Get は指定IDのテーブル定義を返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.TableXClient, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("テーブル定義の取得に失敗しました: %w", err)
	}
	if t == nil {
		return nil, model.NewTableNotFoundError(id)
	}
	return t, nil
}

// List はテーブル定義の一覧を返す。
func (s *Service) List(ctx context.Context, offset, limit int) ([]*model.TableXClient, error) {
	list, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("テーブル定義一覧の取得に失敗しました: %w", err)
	}
	return list, nil
}

// Update は指定された項目のみ更新する。
func (s *Service) Update(ctx context.Context, id int64, patch model.TableXClientPatch) (*model.TableXClient, error) {
	if patch.ClientID.Cleared() || patch.Name.Cleared() || patch.Active.Cleared() {
		return nil, model.NewValidationError("idClient, name, swtにnullは指定できません。")
	}
	if patch.Name.Set {
		patch.Name.Value = strings.TrimSpace(patch.Name.Value)
		if patch.Name.Value == "" {
			return nil, model.NewValidationError("nameは必須です。")
		}
	}
	if err := model.FirstError(
		model.CheckFieldLength("name", patch.Name, model.MaxTableNameLength),
		model.CheckFieldLength("description", patch.Description, model.MaxDescriptionLength),
	); err != nil {
		return nil, err
	}

	t, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if mapped := repository.ToAPIError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("テーブル定義の更新に失敗しました: %w", err)
	}
	if t == nil {
		return nil, model.NewTableNotFoundError(id)
	}
	return t, nil
}

// Delete はテーブル定義を削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("テーブル定義の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewTableNotFoundError(id)
	}
	return nil
}
