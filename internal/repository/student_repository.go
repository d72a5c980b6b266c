package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rayuela-fp/feoe-api/internal/models"
)

// StudentRepository reads the seeded student reference data.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetByDNI fetches a single student.
func (r *StudentRepository) GetByDNI(ctx context.Context, dni string) (*models.Student, error) {
	const query = `SELECT dni, first_name, last_name, center_code, course, class_group, birth_date
	FROM students WHERE dni = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, dni); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns students, optionally restricted to a center or matched by a
// free-text search over name and DNI.
func (r *StudentRepository) List(ctx context.Context, centerCode, search string) ([]models.Student, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 2)
	builder.WriteString(`SELECT dni, first_name, last_name, center_code, course, class_group, birth_date FROM students`)

	conditions := make([]string, 0, 2)
	if centerCode != "" {
		args = append(args, centerCode)
		conditions = append(conditions, fmt.Sprintf("center_code = $%d", len(args)))
	}
	if search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(first_name || ' ' || last_name) LIKE $%d OR LOWER(dni) LIKE $%d)", len(args), len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY last_name, first_name")

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
