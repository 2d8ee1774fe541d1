package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/hitoshi/ragapi/internal/metrics"
	"github.com/hitoshi/ragapi/internal/worker/pool"
)

var (
	loadAWSConfig = config.LoadDefaultConfig

	newCognitoClientFromConfig = func(cfg aws.Config, optFns ...func(*cip.Options)) *cip.Client {
		return cip.NewFromConfig(cfg, optFns...)
	}
)

// CognitoAPI はGatewayが使用するCognito APIのサブセット。
// *cognitoidentityprovider.Client が満たす。
type CognitoAPI interface {
	AdminCreateUser(ctx context.Context, in *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminSetUserPassword(ctx context.Context, in *cip.AdminSetUserPasswordInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error)
	AdminDeleteUser(ctx context.Context, in *cip.AdminDeleteUserInput, optFns ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
}

// ClientConfig はCognitoクライアント生成時の設定。
type ClientConfig struct {
	Region string
	// 両方設定されている場合のみ静的クレデンシャルを使う。それ以外はデフォルトチェーン。
	AccessKeyID     string
	SecretAccessKey string
	// 1回の呼び出しあたりのHTTPタイムアウト
	Timeout time.Duration
}

// NewCognitoClient はCognitoクライアントを生成する。
// SDKのリトライは無効化し、タイムアウトはHTTPクライアントに設定する。
func NewCognitoClient(ctx context.Context, cfg ClientConfig) (*cip.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newCognitoClientFromConfig(awsCfg), nil
}

// ProviderError はCognito呼び出しの失敗を表す。
type ProviderError struct {
	Op      string // 呼び出した操作名
	Code    string // Cognitoのエラーコード
	Message string // Cognitoのエラーメッセージ
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("cognito %s failed (%s): %s", e.Op, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// toProviderError はSDKのエラーからコードとメッセージを取り出す。
func toProviderError(op string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Op: op, Code: apiErr.ErrorCode(), Message: apiErr.ErrorMessage(), Err: err}
	}
	code := "UnknownError"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = "RequestCanceled"
	}
	return &ProviderError{Op: op, Code: code, Message: err.Error(), Err: err}
}

// Tokens は認証成功時にCognitoが発行するトークン。
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int32
	TokenType    string
}

// AuthResult はInitiateAuthの結果。ChallengeNameが空でなければチャレンジ応答。
type AuthResult struct {
	ChallengeName string
	Session       string
	Tokens        *Tokens
}

// IsChallenge はチャレンジ応答かどうかを返す。
func (r *AuthResult) IsChallenge() bool {
	return r.ChallengeName != ""
}

// GatewayConfig はGatewayが参照するユーザープールの識別子。
type GatewayConfig struct {
	UserPoolID string
	ClientID   string
}

// Gateway はCognitoへの呼び出しを担う。
// 全ての呼び出しはワーカープール経由で実行し、リトライはしない。
type Gateway struct {
	api     CognitoAPI
	cfg     GatewayConfig
	pool    *pool.Pool
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewGateway はGatewayを生成する。
func NewGateway(api CognitoAPI, cfg GatewayConfig, p *pool.Pool, m metrics.MetricsCollector, logger *slog.Logger) *Gateway {
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{api: api, cfg: cfg, pool: p, metrics: m, logger: logger}
}

// call はプールのスロットを確保してfnを実行し、結果を計測する。
func (g *Gateway) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := g.pool.Do(ctx, func(ctx context.Context) error {
		start := time.Now()
		err := fn(ctx)
		g.metrics.RecordProviderCall(op, time.Since(start), err)
		return err
	})
	if err != nil {
		return toProviderError(op, err)
	}
	return nil
}

// CreateAccount はメールアドレス検証済みのアカウントを作成し、Cognito側のユーザー名を返す。
// 招待メッセージは送信しない。
func (g *Gateway) CreateAccount(ctx context.Context, desiredUsername, email string) (string, error) {
	var providerUsername string
	err := g.call(ctx, "AdminCreateUser", func(ctx context.Context) error {
		out, err := g.api.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
			UserPoolId:    aws.String(g.cfg.UserPoolID),
			Username:      aws.String(desiredUsername),
			MessageAction: types.MessageActionTypeSuppress,
			UserAttributes: []types.AttributeType{
				{Name: aws.String("email"), Value: aws.String(email)},
				{Name: aws.String("email_verified"), Value: aws.String("true")},
			},
		})
		if err != nil {
			return err
		}
		providerUsername = desiredUsername
		if out != nil && out.User != nil && aws.ToString(out.User.Username) != "" {
			providerUsername = aws.ToString(out.User.Username)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return providerUsername, nil
}

// SetPermanentCredential は恒久パスワードを設定し、初回ログイン時の変更要求を回避する。
func (g *Gateway) SetPermanentCredential(ctx context.Context, providerUsername, password string) error {
	return g.call(ctx, "AdminSetUserPassword", func(ctx context.Context) error {
		_, err := g.api.AdminSetUserPassword(ctx, &cip.AdminSetUserPasswordInput{
			UserPoolId: aws.String(g.cfg.UserPoolID),
			Username:   aws.String(providerUsername),
			Password:   aws.String(password),
			Permanent:  true,
		})
		return err
	})
}

// DeleteAccount はアカウントを削除する。失敗はログに残し、エラーは返さない。
func (g *Gateway) DeleteAccount(ctx context.Context, providerUsername string) {
	err := g.call(ctx, "AdminDeleteUser", func(ctx context.Context) error {
		_, err := g.api.AdminDeleteUser(ctx, &cip.AdminDeleteUserInput{
			UserPoolId: aws.String(g.cfg.UserPoolID),
			Username:   aws.String(providerUsername),
		})
		return err
	})
	if err != nil {
		g.logger.Warn("Cognitoアカウントの削除に失敗しました",
			slog.String("provider_username", providerUsername),
			slog.String("error", err.Error()),
		)
	}
}

// InitiateAuth はUSER_PASSWORD_AUTHで認証を開始する。
// Cognitoがチャレンジを返した場合はトークンの代わりにチャレンジ名とセッションを返す。
func (g *Gateway) InitiateAuth(ctx context.Context, params map[string]string) (*AuthResult, error) {
	const op = "InitiateAuth"
	var result *AuthResult
	err := g.call(ctx, op, func(ctx context.Context) error {
		out, err := g.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
			ClientId:       aws.String(g.cfg.ClientID),
			AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
			AuthParameters: params,
		})
		if err != nil {
			return err
		}
		if out.ChallengeName != "" {
			result = &AuthResult{
				ChallengeName: string(out.ChallengeName),
				Session:       aws.ToString(out.Session),
			}
			return nil
		}
		tokens, err := tokensFrom(op, out.AuthenticationResult)
		if err != nil {
			return err
		}
		result = &AuthResult{Tokens: tokens}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RefreshAuth はREFRESH_TOKEN_AUTHでトークンを更新する。新しいリフレッシュトークンは発行されない。
func (g *Gateway) RefreshAuth(ctx context.Context, params map[string]string) (*Tokens, error) {
	const op = "RefreshAuth"
	var tokens *Tokens
	err := g.call(ctx, op, func(ctx context.Context) error {
		out, err := g.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
			ClientId:       aws.String(g.cfg.ClientID),
			AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
			AuthParameters: params,
		})
		if err != nil {
			return err
		}
		tokens, err = tokensFrom(op, out.AuthenticationResult)
		if err != nil {
			return err
		}
		tokens.RefreshToken = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func tokensFrom(op string, r *types.AuthenticationResultType) (*Tokens, error) {
	if r == nil {
		return nil, &ProviderError{Op: op, Code: "InvalidResponse", Message: "authentication result is empty"}
	}
	return &Tokens{
		AccessToken:  aws.ToString(r.AccessToken),
		IDToken:      aws.ToString(r.IdToken),
		RefreshToken: aws.ToString(r.RefreshToken),
		ExpiresIn:    r.ExpiresIn,
		TokenType:    aws.ToString(r.TokenType),
	}, nil
}
