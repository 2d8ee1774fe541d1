package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ragapi/internal/database"
	"github.com/hitoshi/ragapi/internal/model"
)

const tableColumns = `id, id_client, name, description, swt, create_date, update_date`

// PostgresTableXClientRepo はPostgreSQLを使用したクライアント別テーブル定義リポジトリ。
type PostgresTableXClientRepo struct {
	db *sql.DB
}

// NewPostgresTableXClientRepo はPostgresTableXClientRepoを生成する。
func NewPostgresTableXClientRepo(db *sql.DB) *PostgresTableXClientRepo {
	return &PostgresTableXClientRepo{db: db}
}

func scanTable(s rowScanner) (*model.TableXClient, error) {
	t := &model.TableXClient{}
	err := s.Scan(&t.ID, &t.ClientID, &t.Name, &t.Description, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindByID は指定IDのテーブル定義を取得する。見つからない場合はnilを返す。
func (r *PostgresTableXClientRepo) FindByID(ctx context.Context, id int64) (*model.TableXClient, error) {
	t, err := scanTable(r.db.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM table_x_clients WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find table by ID: %w", err)
	}
	return t, nil
}

// List はID順にテーブル定義を返す。
func (r *PostgresTableXClientRepo) List(ctx context.Context, offset, limit int) ([]*model.TableXClient, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tableColumns+` FROM table_x_clients ORDER BY id OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]*model.TableXClient, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}
	return tables, nil
}

// Create はテーブル定義を作成する。
func (r *PostgresTableXClientRepo) Create(ctx context.Context, table *model.TableXClient) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO table_x_clients (id_client, name, description, swt)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, create_date`,
			table.ClientID, table.Name, table.Description, table.Active,
		).Scan(&table.ID, &table.CreatedAt)
		if err != nil {
			return classifyError(err, "insert table")
		}
		return nil
	})
}

// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
func (r *PostgresTableXClientRepo) Update(ctx context.Context, id int64, patch model.TableXClientPatch) (*model.TableXClient, error) {
	b := &updateBuilder{}
	setField(b, "id_client", patch.ClientID)
	setField(b, "name", patch.Name)
	setField(b, "description", patch.Description)
	setField(b, "swt", patch.Active)
	if b.empty() {
		return r.FindByID(ctx, id)
	}

	query, args := b.build("table_x_clients", id, tableColumns)

	var updated *model.TableXClient
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		t, err := scanTable(tx.QueryRowContext(ctx, query, args...))
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return classifyError(err, "update table")
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete は指定IDのテーブル定義を削除する。見つからない場合はfalseを返す。
func (r *PostgresTableXClientRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, "table_x_clients", id)
}

// compile-time interface check
var _ TableXClientRepository = (*PostgresTableXClientRepo)(nil)
