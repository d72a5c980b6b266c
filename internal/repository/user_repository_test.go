package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/rayuela-fp/feoe-api/internal/models"
)

func TestUserRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "full_name", "role", "province", "center_code", "access_code_hash", "active", "last_login", "created_at"}).
		AddRow("dir-llerena", "Ana Díaz", "DIRECTOR", "Badajoz", "06006899", "$2a$10$hash", true, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, role")).
		WithArgs("dir-llerena").
		WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), "dir-llerena")
	require.NoError(t, err)
	require.Equal(t, models.RoleDirector, user.Role)
	require.Equal(t, "06006899", user.CenterCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateLastLogin(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_login")).
		WithArgs(at, "dir-llerena").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateLastLogin(context.Background(), "dir-llerena", at))
	require.NoError(t, mock.ExpectationsWereMet())
}
