package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/rayuela-fp/feoe-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func requestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "annex_type", "state", "center_code", "created_date", "students", "documents", "history", "read",
		"annulment_requester", "motive", "motive_other", "start_date", "end_date", "agreement_number", "public_body",
		"destination_tutor", "destination_center_code", "dual_course", "extra_condition", "extra_justification",
		"company_name", "company_locality", "company_province", "company_foreign_address", "company_tutor",
		"needs_justification", "inspection_observations", "resolution_observations", "resolved_by",
	})
}

func TestRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.Request{
		ID:          "2025-06006899-I-1",
		AnnexType:   models.AnnexTypeI,
		State:       models.StateDraft,
		CenterCode:  "06006899",
		CreatedDate: "2025-03-10",
		Students:    models.StudentSet{"11111111H"},
		Documents:   models.DocumentList{{Name: "memoria.pdf"}},
		History: models.AuditTrail{
			{ID: "e1", Action: models.ActionCreate, ResultingState: models.StateDraft},
		},
	}
	require.NoError(t, repo.Create(context.Background(), req))

	rows := requestRows().
		AddRow(req.ID, "I", "DRAFT", "06006899", "2025-03-10",
			`["11111111H"]`, `[{"name":"memoria.pdf","date":""}]`,
			`[{"id":"e1","timestamp":"0001-01-01T00:00:00Z","actorName":"","actorRole":"","action":"CREATE","resultingState":"DRAFT"}]`,
			false, "", "Motivo", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, annex_type, state, center_code")).
		WithArgs(req.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, req.ID, found.ID)
	require.Equal(t, models.StateDraft, found.State)
	require.Equal(t, models.StudentSet{"11111111H"}, found.Students)
	require.Len(t, found.History, 1)
	require.Equal(t, models.ActionCreate, found.History[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := requestRows().
		AddRow("2025-06006899-I-1", "I", "PENDING_RESOLUTION_CENTRAL", "06006899", "2025-03-10",
			`[]`, `[]`, `[]`, false,
			"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, annex_type, state, center_code")).
		WithArgs("PENDING_RESOLUTION_CENTRAL", "06006899", "2025-%").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.RequestFilter{
		States:     []models.RequestState{models.StatePendingCentral},
		CenterCode: "06006899",
		Year:       "2025",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "2025-06006899-I-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListExcludesTrashByDefault(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, annex_type, state, center_code")).
		WithArgs("TRASHED").
		WillReturnRows(requestRows())

	_, err := repo.List(context.Background(), models.RequestFilter{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateStateGuard(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	req := &models.Request{
		ID:    "2025-06006899-I-1",
		State: models.StatePendingCentral,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), req, models.StateDraft))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), req, models.StateDraft)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM requests WHERE id = $1")).
		WithArgs("2025-06006899-I-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "2025-06006899-I-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM requests WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
