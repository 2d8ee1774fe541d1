package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ragapi/internal/database"
	"github.com/hitoshi/ragapi/internal/model"
)

const documentColumns = `id, id_client, title, content, file_path, swt, create_date, update_date`

// PostgresDocumentRepo はPostgreSQLを使用したドキュメントリポジトリ。
type PostgresDocumentRepo struct {
	db *sql.DB
}

// NewPostgresDocumentRepo はPostgresDocumentRepoを生成する。
func NewPostgresDocumentRepo(db *sql.DB) *PostgresDocumentRepo {
	return &PostgresDocumentRepo{db: db}
}

func scanDocument(s rowScanner) (*model.Document, error) {
	d := &model.Document{}
	err := s.Scan(&d.ID, &d.ClientID, &d.Title, &d.Content, &d.FilePath, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// FindByID は指定IDのドキュメントを取得する。見つからない場合はnilを返す。
func (r *PostgresDocumentRepo) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find document by ID: %w", err)
	}
	return d, nil
}

// List はID順にドキュメントを返す。clientIDが0以外の場合はそのクライアントのものに絞り込む。
func (r *PostgresDocumentRepo) List(ctx context.Context, clientID int64, offset, limit int) ([]*model.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE ($1 = 0 OR id_client = $1)
		 ORDER BY id OFFSET $2 LIMIT $3`,
		clientID, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// Create はドキュメントを作成する。
func (r *PostgresDocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO documents (id_client, title, content, file_path, swt)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, create_date`,
			doc.ClientID, doc.Title, doc.Content, doc.FilePath, doc.Active,
		).Scan(&doc.ID, &doc.CreatedAt)
		if err != nil {
			return classifyError(err, "insert document")
		}
		return nil
	})
}

// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
func (r *PostgresDocumentRepo) Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.Document, error) {
	b := &updateBuilder{}
	setField(b, "title", patch.Title)
	setField(b, "content", patch.Content)
	setField(b, "file_path", patch.FilePath)
	setField(b, "swt", patch.Active)
	if b.empty() {
		return r.FindByID(ctx, id)
	}

	query, args := b.build("documents", id, documentColumns)

	var updated *model.Document
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		d, err := scanDocument(tx.QueryRowContext(ctx, query, args...))
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return classifyError(err, "update document")
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete は指定IDのドキュメントを削除する。見つからない場合はfalseを返す。
func (r *PostgresDocumentRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, "documents", id)
}

// compile-time interface check
var _ DocumentRepository = (*PostgresDocumentRepo)(nil)
