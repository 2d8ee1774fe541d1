package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ragapi/internal/database"
	"github.com/hitoshi/ragapi/internal/model"
)

const clientColumns = `id, ruc, name, api_key, contact_email, swt, create_date, update_date`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresClientRepo はPostgreSQLを使用したクライアントリポジトリ。
type PostgresClientRepo struct {
	db *sql.DB
}

// NewPostgresClientRepo はPostgresClientRepoを生成する。
func NewPostgresClientRepo(db *sql.DB) *PostgresClientRepo {
	return &PostgresClientRepo{db: db}
}

func scanClient(s rowScanner) (*model.Client, error) {
	c := &model.Client{}
	err := s.Scan(&c.ID, &c.RUC, &c.Name, &c.APIKey, &c.ContactEmail, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindByID は指定IDのクライアントを取得する。見つからない場合はnilを返す。
func (r *PostgresClientRepo) FindByID(ctx context.Context, id int64) (*model.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client by ID: %w", err)
	}
	return c, nil
}

// FindByRUC はRUCでクライアントを検索する。見つからない場合はnilを返す。
func (r *PostgresClientRepo) FindByRUC(ctx context.Context, ruc string) (*model.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE ruc = $1`, ruc,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client by RUC: %w", err)
	}
	return c, nil
}

// List はID順にクライアントを返す。
func (r *PostgresClientRepo) List(ctx context.Context, offset, limit int) ([]*model.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY id OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*model.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}
	return clients, nil
}

// Create はクライアントを作成し、採番されたIDとタイムスタンプを設定する。
func (r *PostgresClientRepo) Create(ctx context.Context, client *model.Client) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO clients (ruc, name, api_key, contact_email, swt)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, create_date`,
			client.RUC, client.Name, client.APIKey, client.ContactEmail, client.Active,
		).Scan(&client.ID, &client.CreatedAt)
		if err != nil {
			return classifyError(err, "insert client")
		}
		return nil
	})
}

// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
func (r *PostgresClientRepo) Update(ctx context.Context, id int64, patch model.ClientPatch) (*model.Client, error) {
	b := &updateBuilder{}
	setField(b, "ruc", patch.RUC)
	setField(b, "name", patch.Name)
	setField(b, "api_key", patch.APIKey)
	setField(b, "contact_email", patch.ContactEmail)
	setField(b, "swt", patch.Active)
	if b.empty() {
		return r.FindByID(ctx, id)
	}

	query, args := b.build("clients", id, clientColumns)

	var updated *model.Client
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		c, err := scanClient(tx.QueryRowContext(ctx, query, args...))
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return classifyError(err, "update client")
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete は指定IDのクライアントを削除する。見つからない場合はfalseを返す。
func (r *PostgresClientRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, "clients", id)
}

// deleteByID はtableから指定IDの行を削除し、削除できたかどうかを返す。
func deleteByID(ctx context.Context, db database.TxBeginner, table string, id int64) (bool, error) {
	var deleted bool
	err := database.WithTx(ctx, db, func(ctx context.Context, tx database.DBTX) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
		if err != nil {
			return classifyError(err, "delete from "+table)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = rowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// compile-time interface check
var _ ClientRepository = (*PostgresClientRepo)(nil)
