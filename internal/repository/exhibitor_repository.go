package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siports-api/internal/models"
)

// ExhibitorUserConstraint allows one exhibitor profile per user.
const ExhibitorUserConstraint = "exhibitors_user_id_key"

const exhibitorColumns = `id, user_id, company_name, category, sector, description, logo_url, website, contact_info, verified, featured, created_at, updated_at`

// ExhibitorRepository manages persistence for exhibitor profiles.
type ExhibitorRepository struct {
	db *sqlx.DB
}

// NewExhibitorRepository constructs an ExhibitorRepository.
func NewExhibitorRepository(db *sqlx.DB) *ExhibitorRepository {
	return &ExhibitorRepository{db: db}
}

// Create inserts a new exhibitor profile.
func (r *ExhibitorRepository) Create(ctx context.Context, exhibitor *models.Exhibitor) error {
	if exhibitor.ID == "" {
		exhibitor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exhibitor.CreatedAt.IsZero() {
		exhibitor.CreatedAt = now
	}
	exhibitor.UpdatedAt = now
	const query = `INSERT INTO exhibitors (` + exhibitorColumns + `)
        VALUES (:id, :user_id, :company_name, :category, :sector, :description, :logo_url, :website, :contact_info, :verified, :featured, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exhibitor); err != nil {
		return fmt.Errorf("create exhibitor: %w", err)
	}
	return nil
}

// FindByID fetches an exhibitor by ID.
func (r *ExhibitorRepository) FindByID(ctx context.Context, id string) (*models.Exhibitor, error) {
	var exhibitor models.Exhibitor
	if err := r.db.GetContext(ctx, &exhibitor, `SELECT `+exhibitorColumns+` FROM exhibitors WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &exhibitor, nil
}

// List returns exhibitors matching the filter together with the total count.
func (r *ExhibitorRepository) List(ctx context.Context, filter models.ExhibitorFilter) ([]models.Exhibitor, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("verified = $%d", len(args)+1))
		args = append(args, *filter.Verified)
	}
	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("featured = $%d", len(args)+1))
		args = append(args, *filter.Featured)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(company_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM exhibitors WHERE %s ORDER BY featured DESC, company_name ASC LIMIT %d OFFSET %d`, exhibitorColumns, where, size, offset)
	var exhibitors []models.Exhibitor
	if err := r.db.SelectContext(ctx, &exhibitors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exhibitors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM exhibitors WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count exhibitors: %w", err)
	}
	return exhibitors, total, nil
}

// SetVerified flags an exhibitor as verified.
func (r *ExhibitorRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE exhibitors SET verified = $1, updated_at = $2 WHERE id = $3`, verified, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("verify exhibitor: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
