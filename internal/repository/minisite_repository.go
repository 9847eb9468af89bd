package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siports-api/internal/models"
)

// MiniSiteExhibitorConstraint enforces one mini-site per exhibitor.
const MiniSiteExhibitorConstraint = "mini_sites_exhibitor_id_key"

const miniSiteColumns = `id, exhibitor_id, theme, custom_colors, sections, published, views, last_updated, created_at`

// MiniSiteRepository persists exhibitor mini-sites.
type MiniSiteRepository struct {
	db *sqlx.DB
}

// NewMiniSiteRepository constructs a MiniSiteRepository.
func NewMiniSiteRepository(db *sqlx.DB) *MiniSiteRepository {
	return &MiniSiteRepository{db: db}
}

func (r *MiniSiteRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a mini-site.
func (r *MiniSiteRepository) Create(ctx context.Context, exec sqlx.ExtContext, site *models.MiniSite) error {
	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	now := dbNow()
	site.CreatedAt = now
	site.LastUpdated = now
	if site.Sections == nil {
		site.Sections = models.Sections{}
	}
	const query = `INSERT INTO mini_sites (` + miniSiteColumns + `)
        VALUES (:id, :exhibitor_id, :theme, :custom_colors, :sections, :published, :views, :last_updated, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, site); err != nil {
		return fmt.Errorf("create mini-site: %w", err)
	}
	return nil
}

// FindByID fetches a mini-site by ID.
func (r *MiniSiteRepository) FindByID(ctx context.Context, id string) (*models.MiniSite, error) {
	var site models.MiniSite
	if err := r.db.GetContext(ctx, &site, `SELECT `+miniSiteColumns+` FROM mini_sites WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &site, nil
}

// FindByExhibitor fetches the mini-site owned by an exhibitor.
func (r *MiniSiteRepository) FindByExhibitor(ctx context.Context, exhibitorID string) (*models.MiniSite, error) {
	var site models.MiniSite
	if err := r.db.GetContext(ctx, &site, `SELECT `+miniSiteColumns+` FROM mini_sites WHERE exhibitor_id = $1`, exhibitorID); err != nil {
		return nil, err
	}
	return &site, nil
}

// UpdateSections stores site.Sections if last_updated still equals expected. It reports false on a lost race.
func (r *MiniSiteRepository) UpdateSections(ctx context.Context, site *models.MiniSite, expected time.Time) (bool, error) {
	now := dbNow()
	const query = `UPDATE mini_sites SET sections = $1, last_updated = $2 WHERE id = $3 AND last_updated = $4`
	res, err := r.db.ExecContext(ctx, query, site.Sections, now, site.ID, expected)
	if err != nil {
		return false, fmt.Errorf("update mini-site sections: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update mini-site sections: %w", err)
	}
	if rows == 1 {
		site.LastUpdated = now
	}
	return rows == 1, nil
}

// UpdateTheme changes the theme and palette.
func (r *MiniSiteRepository) UpdateTheme(ctx context.Context, id, theme string, colors models.ColorPalette) error {
	res, err := r.db.ExecContext(ctx, `UPDATE mini_sites SET theme = $1, custom_colors = $2, last_updated = $3 WHERE id = $4`,
		theme, colors, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update mini-site theme: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPublished toggles visibility.
func (r *MiniSiteRepository) SetPublished(ctx context.Context, exec sqlx.ExtContext, id string, published bool) error {
	res, err := r.exec(exec).ExecContext(ctx, `UPDATE mini_sites SET published = $1, last_updated = $2 WHERE id = $3`,
		published, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("publish mini-site: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// dbNow returns the current time at Postgres timestamp precision.
func dbNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// IncrementViews bumps the view counter and returns the new value.
func (r *MiniSiteRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	if err := r.db.GetContext(ctx, &views, `UPDATE mini_sites SET views = views + 1 WHERE id = $1 RETURNING views`, id); err != nil {
		return 0, err
	}
	return views, nil
}
