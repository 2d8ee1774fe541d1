package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/ragapi/internal/model"
)

var userRowColumns = []string{"id", "username", "email", "full_name", "id_client", "provider_username", "swt", "create_date", "update_date"}

func TestPostgresUserRepo_Create_StoresProviderUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	created := time.Now().UTC()
	providerUsername := "3c1e8b7a-provider"

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+users\s*\(username,\s*email,\s*full_name,\s*id_client,\s*provider_username,\s*swt\)`).
		WithArgs("alice", "alice@example.com", nil, int64(1), providerUsername, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "create_date"}).AddRow(int64(11), created))
	mock.ExpectCommit()

	u := &model.User{
		Username:         "alice",
		Email:            "alice@example.com",
		ClientID:         1,
		ProviderUsername: &providerUsername,
		Active:           true,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	require.Equal(t, int64(11), u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_Create_MissingClient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "users_id_client_fkey"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.User{Username: "bob", Email: "bob@example.com", ClientID: 404})
	require.ErrorIs(t, err, ErrReferenceViolation)
	require.Equal(t, "users_id_client_fkey", ConstraintName(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM users ORDER BY id OFFSET \$1 LIMIT \$2`).
		WithArgs(0, 2).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(1), "alice", "alice@example.com", "Alice A", int64(1), "p-1", true, now, nil).
			AddRow(int64(2), "bob", "bob@example.com", nil, int64(1), nil, false, now, now))

	users, err := repo.List(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "Alice A", *users[0].FullName)
	require.Equal(t, "p-1", *users[0].ProviderUsername)
	require.Nil(t, users[1].FullName)
	require.Nil(t, users[1].ProviderUsername)
	require.False(t, users[1].Active)
}

func TestPostgresUserRepo_Update_MultipleFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE users SET email = $1, swt = $2, update_date = now() WHERE id = $3`,
	)).
		WithArgs("new@example.com", false, int64(1)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(1), "alice", "new@example.com", nil, int64(1), nil, false, now, now))
	mock.ExpectCommit()

	u, err := repo.Update(context.Background(), 1, model.UserPatch{
		Email:  model.SetTo("new@example.com"),
		Active: model.SetTo(false),
	})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", u.Email)
	require.False(t, u.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_Update_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users SET`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 1, model.UserPatch{Email: model.SetTo("taken@example.com")})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}
