package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rayuela-fp/feoe-api/internal/models"
)

const requestColumns = `id, annex_type, state, center_code, created_date, students, documents, history, read,
       annulment_requester, motive, motive_other, start_date, end_date, agreement_number, public_body,
       destination_tutor, destination_center_code, dual_course, extra_condition, extra_justification,
       company_name, company_locality, company_province, company_foreign_address, company_tutor,
       needs_justification, inspection_observations, resolution_observations, resolved_by`

// RequestRepository persists annex requests and their audit history.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row. The identifier is allocated by the caller.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	const query = `INSERT INTO requests
	(id, annex_type, state, center_code, created_date, students, documents, history, read,
	 annulment_requester, motive, motive_other, start_date, end_date, agreement_number, public_body,
	 destination_tutor, destination_center_code, dual_course, extra_condition, extra_justification,
	 company_name, company_locality, company_province, company_foreign_address, company_tutor,
	 needs_justification, inspection_observations, resolution_observations, resolved_by)
	VALUES (:id, :annex_type, :state, :center_code, :created_date, :students, :documents, :history, :read,
	 :annulment_requester, :motive, :motive_other, :start_date, :end_date, :agreement_number, :public_body,
	 :destination_tutor, :destination_center_code, :dual_course, :extra_condition, :extra_justification,
	 :company_name, :company_locality, :company_province, :company_foreign_address, :company_tutor,
	 :needs_justification, :inspection_observations, :resolution_observations, :resolved_by)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1`, requestColumns)
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, newest first. Trashed rows are
// excluded unless asked for, either explicitly or through IncludeTrash.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM requests`, requestColumns))

	conditions := make([]string, 0, 5)
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	} else if !filter.IncludeTrash {
		args = append(args, models.StateTrashed)
		conditions = append(conditions, fmt.Sprintf("state <> $%d", len(args)))
	}
	if filter.AnnexType != "" {
		args = append(args, filter.AnnexType)
		conditions = append(conditions, fmt.Sprintf("annex_type = $%d", len(args)))
	}
	if filter.CenterCode != "" {
		args = append(args, filter.CenterCode)
		conditions = append(conditions, fmt.Sprintf("center_code = $%d", len(args)))
	}
	if len(filter.CenterCodes) > 0 {
		placeholders := make([]string, len(filter.CenterCodes))
		for i, code := range filter.CenterCodes {
			args = append(args, code)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("center_code IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Year != "" {
		args = append(args, filter.Year+"-%")
		conditions = append(conditions, fmt.Sprintf("id LIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_date DESC, id DESC")

	if filter.Limit > 0 {
		builder.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		if filter.Offset > 0 {
			builder.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
		}
	}

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// Update rewrites the mutable columns guarded by the expected state, so a
// row changed by a concurrent transition is never overwritten. A guard miss
// surfaces as sql.ErrNoRows.
func (r *RequestRepository) Update(ctx context.Context, req *models.Request, expectedState models.RequestState) error {
	const query = `UPDATE requests SET
	 state = :state, students = :students, documents = :documents, history = :history, read = :read,
	 annulment_requester = :annulment_requester, motive = :motive, motive_other = :motive_other,
	 start_date = :start_date, end_date = :end_date, agreement_number = :agreement_number,
	 public_body = :public_body, destination_tutor = :destination_tutor,
	 destination_center_code = :destination_center_code, dual_course = :dual_course,
	 extra_condition = :extra_condition, extra_justification = :extra_justification,
	 company_name = :company_name, company_locality = :company_locality,
	 company_province = :company_province, company_foreign_address = :company_foreign_address,
	 company_tutor = :company_tutor, needs_justification = :needs_justification,
	 inspection_observations = :inspection_observations,
	 resolution_observations = :resolution_observations, resolved_by = :resolved_by
	 WHERE id = :id AND state = :expected_state`
	arg := struct {
		*models.Request
		ExpectedState models.RequestState `db:"expected_state"`
	}{Request: req, ExpectedState: expectedState}
	result, err := r.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a request permanently.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
