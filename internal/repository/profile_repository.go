package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siports-api/internal/models"
)

// ProfileRepository reads visitor and partner tiers.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindTier returns the booking tier of a user. sql.ErrNoRows is returned when the user has no profile.
func (r *ProfileRepository) FindTier(ctx context.Context, userID string) (*models.RequesterTier, error) {
	const query = `SELECT user_id, kind, level FROM (
        SELECT user_id, 'partner' AS kind, tier AS level FROM partner_profiles WHERE user_id = $1
        UNION ALL
        SELECT user_id, 'visitor' AS kind, level FROM visitor_profiles WHERE user_id = $1
    ) profiles ORDER BY CASE kind WHEN 'partner' THEN 0 ELSE 1 END LIMIT 1`
	var tier models.RequesterTier
	if err := r.db.GetContext(ctx, &tier, query, userID); err != nil {
		return nil, err
	}
	return &tier, nil
}
