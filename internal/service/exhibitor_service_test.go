package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	"github.com/noah-isme/siports-api/internal/repository"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

type exhibitorRepoStub struct {
	items     map[string]*models.Exhibitor
	created   []*models.Exhibitor
	createErr error
	filter    models.ExhibitorFilter
}

func (s *exhibitorRepoStub) Create(ctx context.Context, exhibitor *models.Exhibitor) error {
	if s.createErr != nil {
		return s.createErr
	}
	exhibitor.ID = fmt.Sprintf("ex-%d", len(s.created)+1)
	s.created = append(s.created, exhibitor)
	s.items[exhibitor.ID] = exhibitor
	return nil
}

func (s *exhibitorRepoStub) FindByID(ctx context.Context, id string) (*models.Exhibitor, error) {
	if e, ok := s.items[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *exhibitorRepoStub) List(ctx context.Context, filter models.ExhibitorFilter) ([]models.Exhibitor, int, error) {
	s.filter = filter
	var out []models.Exhibitor
	for _, e := range s.items {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (s *exhibitorRepoStub) SetVerified(ctx context.Context, id string, verified bool) error {
	e, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Verified = verified
	return nil
}

type seederStub struct {
	calls int
	err   error
}

func (s *seederStub) CreateFromExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) (*models.MiniSite, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.MiniSite{ID: "site-1", ExhibitorID: exhibitorID}, nil
}

func TestExhibitorServiceCreate(t *testing.T) {
	repo := &exhibitorRepoStub{items: map[string]*models.Exhibitor{}}
	svc := NewExhibitorService(repo, &seederStub{}, nil, nil)

	exhibitor, err := svc.Create(context.Background(), dto.CreateExhibitorRequest{
		UserID:      "user-1",
		CompanyName: "  Port Co ",
		Category:    models.CategoryPortOperations,
		Website:     "https://port.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "Port Co", exhibitor.CompanyName)
	assert.False(t, exhibitor.Verified)

	_, err = svc.Create(context.Background(), dto.CreateExhibitorRequest{UserID: "user-2", CompanyName: "X", Category: "circus"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	repo.createErr = fmt.Errorf("create exhibitor: %w", &pq.Error{Code: "23505", Constraint: repository.ExhibitorUserConstraint})
	_, err = svc.Create(context.Background(), dto.CreateExhibitorRequest{UserID: "user-1", CompanyName: "Again", Category: models.CategoryAcademic})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestExhibitorServiceListDefaults(t *testing.T) {
	repo := &exhibitorRepoStub{items: map[string]*models.Exhibitor{"ex-1": {ID: "ex-1"}}}
	svc := NewExhibitorService(repo, &seederStub{}, nil, nil)

	items, page, err := svc.List(context.Background(), dto.ExhibitorQuery{PageSize: 1000, Search: " port "})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, "port", repo.filter.Search)
}

func TestExhibitorServiceVerifySeedsMiniSite(t *testing.T) {
	repo := &exhibitorRepoStub{items: map[string]*models.Exhibitor{"ex-1": {ID: "ex-1", UserID: "owner-1"}}}
	seeder := &seederStub{}
	svc := NewExhibitorService(repo, seeder, nil, nil)
	admin := claims("root", models.RoleAdmin)

	exhibitor, err := svc.Verify(context.Background(), "ex-1", admin)
	require.NoError(t, err)
	assert.True(t, exhibitor.Verified)
	assert.Equal(t, 1, seeder.calls)

	seeder.err = appErrors.Clone(appErrors.ErrMiniSiteExists, "mini-site already exists for this exhibitor")
	_, err = svc.Verify(context.Background(), "ex-1", admin)
	require.NoError(t, err)

	seeder.err = appErrors.ErrInternal
	_, err = svc.Verify(context.Background(), "ex-1", admin)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))

	_, err = svc.Verify(context.Background(), "ex-1", claims("owner-1", models.RoleExhibitor))
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Verify(context.Background(), "missing", admin)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
