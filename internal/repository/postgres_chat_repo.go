package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ragapi/internal/database"
	"github.com/hitoshi/ragapi/internal/model"
)

const (
	chatColumns       = `id, id_user, session_id, message, response, source_documents, swt, create_date, update_date`
	chatDetailColumns = `id, id_chat, detail, type, "order", swt, create_date, update_date`
)

// PostgresChatRepo はPostgreSQLを使用したチャットリポジトリ。
type PostgresChatRepo struct {
	db *sql.DB
}

// NewPostgresChatRepo はPostgresChatRepoを生成する。
func NewPostgresChatRepo(db *sql.DB) *PostgresChatRepo {
	return &PostgresChatRepo{db: db}
}

func scanChat(s rowScanner) (*model.Chat, error) {
	c := &model.Chat{}
	err := s.Scan(&c.ID, &c.UserID, &c.SessionID, &c.Message, &c.Response,
		&c.SourceDocuments, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanChatDetail(s rowScanner) (*model.ChatDetail, error) {
	d := &model.ChatDetail{}
	var detailType string
	err := s.Scan(&d.ID, &d.ChatID, &d.Detail, &detailType, &d.Order, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Type = model.ChatDetailType(detailType)
	return d, nil
}

// FindByID は指定IDのチャットを取得する。見つからない場合はnilを返す。
func (r *PostgresChatRepo) FindByID(ctx context.Context, id int64) (*model.Chat, error) {
	c, err := scanChat(r.db.QueryRowContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat by ID: %w", err)
	}
	return c, nil
}

// ListByUser は指定ユーザーのチャットを新しい順に返す。
func (r *PostgresChatRepo) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*model.Chat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats
		 WHERE id_user = $1
		 ORDER BY create_date DESC, id DESC
		 OFFSET $2 LIMIT $3`,
		userID, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*model.Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}
	return chats, nil
}

// Create はチャットを作成する。
func (r *PostgresChatRepo) Create(ctx context.Context, chat *model.Chat) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO chats (id_user, session_id, message, response, source_documents, swt)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, create_date`,
			chat.UserID, chat.SessionID, chat.Message, chat.Response, chat.SourceDocuments, chat.Active,
		).Scan(&chat.ID, &chat.CreatedAt)
		if err != nil {
			return classifyError(err, "insert chat")
		}
		return nil
	})
}

// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
func (r *PostgresChatRepo) Update(ctx context.Context, id int64, patch model.ChatPatch) (*model.Chat, error) {
	b := &updateBuilder{}
	setField(b, "response", patch.Response)
	setField(b, "source_documents", patch.SourceDocuments)
	setField(b, "swt", patch.Active)
	if b.empty() {
		return r.FindByID(ctx, id)
	}

	query, args := b.build("chats", id, chatColumns)

	var updated *model.Chat
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		c, err := scanChat(tx.QueryRowContext(ctx, query, args...))
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return classifyError(err, "update chat")
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete は指定IDのチャットを削除する。
func (r *PostgresChatRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, "chats", id)
}

// AddDetail はチャットに明細を追加する。
// 親チャットの行をロックしてからorderを採番するため、同一チャットへの同時追加でも重複しない。
func (r *PostgresChatRepo) AddDetail(ctx context.Context, detail *model.ChatDetail) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		var locked int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM chats WHERE id = $1 FOR UPDATE`, detail.ChatID,
		).Scan(&locked)
		if err == sql.ErrNoRows {
			return &ConstraintError{
				Kind:       ErrReferenceViolation,
				Constraint: "chat_details_id_chat_fkey",
				Err:        err,
			}
		}
		if err != nil {
			return fmt.Errorf("failed to lock chat: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO chat_details (id_chat, detail, type, "order", swt)
			 VALUES ($1, $2, $3,
			         (SELECT COALESCE(MAX("order"), 0) + 1 FROM chat_details WHERE id_chat = $1),
			         $4)
			 RETURNING id, "order", create_date`,
			detail.ChatID, detail.Detail, string(detail.Type), detail.Active,
		).Scan(&detail.ID, &detail.Order, &detail.CreatedAt)
		if err != nil {
			return classifyError(err, "insert chat detail")
		}
		return nil
	})
}

// ListDetails は指定チャットの明細をorder順に返す。
func (r *PostgresChatRepo) ListDetails(ctx context.Context, chatID int64) ([]*model.ChatDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chatDetailColumns+` FROM chat_details WHERE id_chat = $1 ORDER BY "order"`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat details: %w", err)
	}
	defer rows.Close()

	details := make([]*model.ChatDetail, 0)
	for rows.Next() {
		d, err := scanChatDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat details: %w", err)
	}
	return details, nil
}

// compile-time interface check
var _ ChatRepository = (*PostgresChatRepo)(nil)
