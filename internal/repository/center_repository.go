package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rayuela-fp/feoe-api/internal/models"
)

// CenterRepository reads the seeded center reference data.
type CenterRepository struct {
	db *sqlx.DB
}

// NewCenterRepository constructs a CenterRepository.
func NewCenterRepository(db *sqlx.DB) *CenterRepository {
	return &CenterRepository{db: db}
}

// GetByCode fetches a single center.
func (r *CenterRepository) GetByCode(ctx context.Context, code string) (*models.Center, error) {
	const query = `SELECT code, name, locality, province, director_name, agreements
	FROM centers WHERE code = $1`
	var center models.Center
	if err := r.db.GetContext(ctx, &center, query, code); err != nil {
		return nil, err
	}
	return &center, nil
}

// List returns centers, optionally restricted to a province.
func (r *CenterRepository) List(ctx context.Context, province string) ([]models.Center, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 1)
	builder.WriteString(`SELECT code, name, locality, province, director_name, agreements FROM centers`)
	if province != "" {
		args = append(args, province)
		builder.WriteString(fmt.Sprintf(" WHERE province = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY name")

	var centers []models.Center
	if err := r.db.SelectContext(ctx, &centers, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	return centers, nil
}
