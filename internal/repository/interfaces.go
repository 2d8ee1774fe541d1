// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/ragapi/internal/model"
)

// 一覧取得のデフォルト値と上限
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ClientRepository はクライアントデータの永続化インターフェース。
type ClientRepository interface {
	// FindByID は指定IDのクライアントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Client, error)

	// FindByRUC はRUCでクライアントを検索する。見つからない場合はnilを返す。
	FindByRUC(ctx context.Context, ruc string) (*model.Client, error)

	// List はID順にoffset件をスキップしてlimit件のクライアントを返す。
	List(ctx context.Context, offset, limit int) ([]*model.Client, error)

	// Create はクライアントを作成し、採番されたIDとタイムスタンプを設定する。
	// 一意制約違反の場合はErrDuplicateを返す。
	Create(ctx context.Context, client *model.Client) error

	// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.ClientPatch) (*model.Client, error)

	// Delete は指定IDのクライアントを削除する。見つからない場合はfalseを返す。
	// 参照中のユーザー等が存在する場合はErrReferenceViolationを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// List はID順にoffset件をスキップしてlimit件のユーザーを返す。
	List(ctx context.Context, offset, limit int) ([]*model.User, error)

	// Create はユーザーを作成し、採番されたIDとタイムスタンプを設定する。
	// username/emailの重複はErrDuplicate、存在しないクライアントはErrReferenceViolationを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error)

	// Delete は指定IDのユーザーを削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// TableXClientRepository はクライアント別テーブル定義の永続化インターフェース。
type TableXClientRepository interface {
	// FindByID は指定IDのテーブル定義を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.TableXClient, error)

	// List はID順にoffset件をスキップしてlimit件のテーブル定義を返す。
	List(ctx context.Context, offset, limit int) ([]*model.TableXClient, error)

	// Create はテーブル定義を作成する。
	Create(ctx context.Context, table *model.TableXClient) error

	// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.TableXClientPatch) (*model.TableXClient, error)

	// Delete は指定IDのテーブル定義を削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// DocumentRepository はドキュメントの永続化インターフェース。
type DocumentRepository interface {
	// FindByID は指定IDのドキュメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// List はドキュメントを返す。clientIDが0以外の場合はそのクライアントのものに絞り込む。
	List(ctx context.Context, clientID int64, offset, limit int) ([]*model.Document, error)

	// Create はドキュメントを作成する。
	Create(ctx context.Context, doc *model.Document) error

	// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.Document, error)

	// Delete は指定IDのドキュメントを削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// ChatRepository はチャットと明細の永続化インターフェース。
type ChatRepository interface {
	// FindByID は指定IDのチャットを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Chat, error)

	// ListByUser は指定ユーザーのチャットを新しい順に返す。
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*model.Chat, error)

	// Create はチャットを作成する。
	Create(ctx context.Context, chat *model.Chat) error

	// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.ChatPatch) (*model.Chat, error)

	// Delete は指定IDのチャットを削除する。明細はCASCADE削除される。
	Delete(ctx context.Context, id int64) (bool, error)

	// AddDetail はチャットに明細を追加する。
	// orderはチャット内の最大値+1を同一トランザクションで採番する。
	AddDetail(ctx context.Context, detail *model.ChatDetail) error

	// ListDetails は指定チャットの明細をorder順に返す。
	ListDetails(ctx context.Context, chatID int64) ([]*model.ChatDetail, error)
}
