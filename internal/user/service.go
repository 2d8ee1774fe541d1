// Package user はユーザー管理のドメインロジックを提供する。
// 登録時はCognitoアカウントの作成とローカルレコードの作成を補償付きで行う。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/ragapi/internal/identity"
	"github.com/hitoshi/ragapi/internal/model"
	"github.com/hitoshi/ragapi/internal/repository"
	"github.com/hitoshi/ragapi/internal/saga"
)

// 登録サーガのステップ名
const (
	StepCreateAccount = "create_account"
	StepSetPassword   = "set_password"
	StepInsertUser    = "insert_user"
)

// ProviderGateway はユーザー登録に使うCognito呼び出しのインターフェース。
type ProviderGateway interface {
	CreateAccount(ctx context.Context, desiredUsername, email string) (string, error)
	SetPermanentCredential(ctx context.Context, providerUsername, password string) error
	DeleteAccount(ctx context.Context, providerUsername string)
}

// CreateInput はユーザー登録の入力。
type CreateInput struct {
	Username string
	Email    string
	Password string
	FullName *string
	ClientID int64
	Active   *bool // nilの場合はtrue
}

// Options はServiceの動作設定。
type Options struct {
	// DeleteProviderAccount がtrueの場合、ユーザー削除時にCognitoアカウントも削除する。
	DeleteProviderAccount bool
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	gateway  ProviderGateway
	runner   *saga.Runner
	opts     Options
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, gateway ProviderGateway, runner *saga.Runner, opts Options) *Service {
	return &Service{
		userRepo: userRepo,
		gateway:  gateway,
		runner:   runner,
		opts:     opts,
	}
}

func validateCreate(in *CreateInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = model.NormalizeEmail(in.Email)
	switch {
	case in.Username == "":
		return model.NewValidationError("usernameは必須です。")
	case !model.ValidEmail(in.Email):
		return model.NewValidationError("emailの形式が不正です。")
	case in.Password == "":
		return model.NewValidationError("passwordは必須です。")
	case in.ClientID <= 0:
		return model.NewValidationError("idClientは必須です。")
	}
	return model.FirstError(
		model.CheckLength("username", in.Username, model.MaxUsernameLength),
		model.CheckLength("email", in.Email, model.MaxEmailLength),
		model.CheckOptionalLength("full_name", in.FullName, model.MaxFullNameLength),
	)
}

// Create はCognitoアカウントとローカルユーザーを作成する。
// 1. Cognitoアカウント作成 2. 恒久パスワード設定 3. ローカルレコード作成 の順に実行し、
// 途中で失敗した場合は作成済みのCognitoアカウントを削除してから元のエラーを返す。
// 冪等ではない。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.User, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	var providerUsername string
	user := &model.User{
		Username: in.Username,
		Email:    in.Email,
		FullName: in.FullName,
		ClientID: in.ClientID,
		Active:   active,
	}

	err := s.runner.Run(ctx,
		saga.Step{
			Name: StepCreateAccount,
			Action: func(ctx context.Context) (saga.Compensation, error) {
				created, err := s.gateway.CreateAccount(ctx, in.Email, in.Email)
				if err != nil {
					return nil, err
				}
				providerUsername = created
				return func(ctx context.Context) error {
					s.gateway.DeleteAccount(ctx, created)
					return nil
				}, nil
			},
		},
		saga.Step{
			Name: StepSetPassword,
			Action: func(ctx context.Context) (saga.Compensation, error) {
				return nil, s.gateway.SetPermanentCredential(ctx, providerUsername, in.Password)
			},
		},
		saga.Step{
			Name: StepInsertUser,
			Action: func(ctx context.Context) (saga.Compensation, error) {
				user.ProviderUsername = &providerUsername
				return nil, s.userRepo.Create(ctx, user)
			},
		},
	)
	if err != nil {
		return nil, s.createError(err, in.Email)
	}

	slog.Info("ユーザーを登録しました",
		slog.Int64("user_id", user.ID),
		slog.String("provider_username", providerUsername),
	)
	return user, nil
}

func (s *Service) createError(err error, email string) error {
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		slog.Warn("Cognitoでのユーザー登録に失敗しました",
			slog.String("email", email),
			slog.String("op", pe.Op),
			slog.String("code", pe.Code),
		)
		return model.NewProviderError(pe.Code, pe.Message)
	}
	if mapped := repository.ToAPIError(err); mapped != err {
		return mapped
	}
	return fmt.Errorf("ユーザーの登録に失敗しました: %w", err)
}

// Get は指定IDのユーザーを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return u, nil
}

// List はユーザー一覧を返す。
func (s *Service) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Update は指定された項目のみ更新する。Cognito側の属性は変更しない。
func (s *Service) Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	if patch.Username.Cleared() || patch.Email.Cleared() || patch.ClientID.Cleared() || patch.Active.Cleared() {
		return nil, model.NewValidationError("username, email, idClient, swtにnullは指定できません。")
	}
	if patch.Username.Set {
		patch.Username.Value = strings.TrimSpace(patch.Username.Value)
		if patch.Username.Value == "" {
			return nil, model.NewValidationError("usernameは必須です。")
		}
	}
	if patch.Email.Set {
		patch.Email.Value = model.NormalizeEmail(patch.Email.Value)
		if !model.ValidEmail(patch.Email.Value) {
			return nil, model.NewValidationError("emailの形式が不正です。")
		}
	}
	if err := model.FirstError(
		model.CheckFieldLength("username", patch.Username, model.MaxUsernameLength),
		model.CheckFieldLength("email", patch.Email, model.MaxEmailLength),
		model.CheckFieldLength("full_name", patch.FullName, model.MaxFullNameLength),
	); err != nil {
		return nil, err
	}

	u, err := s.userRepo.Update(ctx, id, patch)
	if err != nil {
		if mapped := repository.ToAPIError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return u, nil
}

// Delete はユーザーを削除する。
// DeleteProviderAccountが有効な場合、ローカル削除後にCognitoアカウントも削除する（失敗しても継続）。
func (s *Service) Delete(ctx context.Context, id int64) error {
	var providerUsername string
	if s.opts.DeleteProviderAccount {
		u, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if u.ProviderUsername != nil {
			providerUsername = *u.ProviderUsername
		}
	}

	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		if mapped := repository.DeleteToAPIError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewUserNotFoundError(id)
	}

	if providerUsername != "" {
		s.gateway.DeleteAccount(context.WithoutCancel(ctx), providerUsername)
	}

	slog.Info("ユーザーを削除しました", slog.Int64("user_id", id))
	return nil
}
