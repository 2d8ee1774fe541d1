package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/ragapi/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var clientRowColumns = []string{"id", "ruc", "name", "api_key", "contact_email", "swt", "create_date", "update_date"}

func TestPostgresClientRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+clients\s*\(ruc,\s*name,\s*api_key,\s*contact_email,\s*swt\).*RETURNING\s+id,\s*create_date`).
		WithArgs("20123456789", "Acme", nil, nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "create_date"}).AddRow(int64(7), created))
	mock.ExpectCommit()

	c := &model.Client{RUC: "20123456789", Name: "Acme", Active: true}
	require.NoError(t, repo.Create(context.Background(), c))
	require.Equal(t, int64(7), c.ID)
	require.Equal(t, created, c.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepo_Create_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT\s+INTO\s+clients`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "clients_ruc_key"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.Client{RUC: "20123456789", Name: "Acme", Active: true})
	require.ErrorIs(t, err, ErrDuplicate)
	require.Equal(t, "clients_ruc_key", ConstraintName(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepo_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)

	mock.ExpectQuery(`SELECT .* FROM clients WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	c, err := repo.FindByID(context.Background(), 99)
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestPostgresClientRepo_List_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)

	mock.ExpectQuery(`SELECT .* FROM clients ORDER BY id OFFSET \$1 LIMIT \$2`).
		WithArgs(10, 5).
		WillReturnRows(sqlmock.NewRows(clientRowColumns))

	clients, err := repo.List(context.Background(), 10, 5)
	require.NoError(t, err)
	require.NotNil(t, clients)
	require.Empty(t, clients)
}

// nameのみ指定した場合、SET句にはnameとupdate_dateだけが含まれる
func TestPostgresClientRepo_Update_OnlyGivenFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE clients SET name = $1, update_date = now() WHERE id = $2 RETURNING `+clientColumns,
	)).
		WithArgs("New Name", int64(3)).
		WillReturnRows(sqlmock.NewRows(clientRowColumns).
			AddRow(int64(3), "20123456789", "New Name", nil, nil, true, now, now))
	mock.ExpectCommit()

	c, err := repo.Update(context.Background(), 3, model.ClientPatch{Name: model.SetTo("New Name")})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, "New Name", c.Name)
	require.Equal(t, "20123456789", c.RUC)
	require.NotNil(t, c.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepo_Update_NullClearsColumn(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE clients SET api_key = $1, update_date = now() WHERE id = $2`)).
		WithArgs(nil, int64(3)).
		WillReturnRows(sqlmock.NewRows(clientRowColumns).
			AddRow(int64(3), "20123456789", "Acme", nil, nil, true, now, now))
	mock.ExpectCommit()

	c, err := repo.Update(context.Background(), 3, model.ClientPatch{APIKey: model.SetNull[string]()})
	require.NoError(t, err)
	require.Nil(t, c.APIKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepo_Update_EmptyPatchReadsCurrent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM clients WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(clientRowColumns).
			AddRow(int64(3), "20123456789", "Acme", nil, nil, true, now, nil))

	c, err := repo.Update(context.Background(), 3, model.ClientPatch{})
	require.NoError(t, err)
	require.Equal(t, "Acme", c.Name)
	require.Nil(t, c.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepo_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE clients SET`).WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	c, err := repo.Update(context.Background(), 3, model.ClientPatch{Name: model.SetTo("x")})
	require.NoError(t, err)
	require.Nil(t, c)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepo_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"削除成功", 1, true},
		{"該当なし", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewPostgresClientRepo(db)

			mock.ExpectBegin()
			mock.ExpectExec(`DELETE FROM clients WHERE id = \$1`).
				WithArgs(int64(5)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			got, err := repo.Delete(context.Background(), 5)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresClientRepo_Delete_Referenced(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM clients`).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "users_id_client_fkey"})
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 5)
	require.ErrorIs(t, err, ErrReferenceViolation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepo_FindByID_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresClientRepo(db)

	mock.ExpectQuery(`SELECT .* FROM clients`).WillReturnError(errors.New("db down"))

	_, err := repo.FindByID(context.Background(), 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "db down")
}
