package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ragapi/internal/database"
	"github.com/hitoshi/ragapi/internal/model"
)

const userColumns = `id, username, email, full_name, id_client, provider_username, swt, create_date, update_date`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func scanUser(s rowScanner) (*model.User, error) {
	u := &model.User{}
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.ClientID,
		&u.ProviderUsername, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return u, nil
}

// List はID順にユーザーを返す。
func (r *PostgresUserRepo) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Create はユーザーを作成し、採番されたIDとタイムスタンプを設定する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	return database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (username, email, full_name, id_client, provider_username, swt)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, create_date`,
			user.Username, user.Email, user.FullName, user.ClientID, user.ProviderUsername, user.Active,
		).Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			return classifyError(err, "insert user")
		}
		return nil
	})
}

// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	b := &updateBuilder{}
	setField(b, "username", patch.Username)
	setField(b, "email", patch.Email)
	setField(b, "full_name", patch.FullName)
	setField(b, "id_client", patch.ClientID)
	setField(b, "swt", patch.Active)
	if b.empty() {
		return r.FindByID(ctx, id)
	}

	query, args := b.build("users", id, userColumns)

	var updated *model.User
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		u, err := scanUser(tx.QueryRowContext(ctx, query, args...))
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return classifyError(err, "update user")
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete は指定IDのユーザーを削除する。見つからない場合はfalseを返す。
func (r *PostgresUserRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, "users", id)
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
