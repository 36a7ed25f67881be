package farmer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/events"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// Store defines the persistence operations required by the farmer service.
type Store interface {
	Insert(ctx context.Context, in repo.FarmerInput) (repo.Farmer, error)
	Update(ctx context.Context, id int64, in repo.FarmerInput) (repo.Farmer, error)
	Get(ctx context.Context, id int64) (repo.Farmer, error)
	Delete(ctx context.Context, id int64) error
	ListByBranch(ctx context.Context, branchID int64, status string, limit, offset int) ([]repo.Farmer, int64, error)
}

// Service manages farmer registrations.
type Service struct {
	Store  Store
	Bus    *events.Bus
	Logger zerolog.Logger
}

const defaultStatus = "active"

// Create registers a new farmer; empty status defaults to active.
func (s *Service) Create(ctx context.Context, in repo.FarmerInput) (repo.Farmer, error) {
	if in.Status == "" {
		in.Status = defaultStatus
	}
	row, err := s.Store.Insert(ctx, in)
	if err != nil {
		return repo.Farmer{}, err
	}
	if s.Bus != nil {
		if _, err := s.Bus.Emit(ctx, events.TopicFarmerCreated, in.BranchID,
			fmt.Sprintf("farmer %s registered", row.Name),
			map[string]any{"farmerId": row.ID}); err != nil {
			s.Logger.Warn().Err(err).Msg("emit farmer.created")
		}
	}
	return row, nil
}

// Update rewrites a farmer's profile.
func (s *Service) Update(ctx context.Context, id int64, in repo.FarmerInput) (repo.Farmer, error) {
	row, err := s.Store.Update(ctx, id, in)
	if err != nil {
		return repo.Farmer{}, notFound(err)
	}
	return row, nil
}

// Get fetches one farmer.
func (s *Service) Get(ctx context.Context, id int64) (repo.Farmer, error) {
	row, err := s.Store.Get(ctx, id)
	if err != nil {
		return repo.Farmer{}, notFound(err)
	}
	return row, nil
}

// Delete removes a farmer. Entries survive and show up under the unknown
// farmer group in reports.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

// List returns a page of a branch's farmers, optionally restricted by
// status, plus the unpaged total.
func (s *Service) List(ctx context.Context, branchID int64, status string, page, perPage int) ([]repo.Farmer, int64, error) {
	if page < 1 {
		page = 1
	}
	return s.Store.ListByBranch(ctx, branchID, status, perPage, (page-1)*perPage)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewAppError("FARMER_NOT_FOUND", "farmer not found", http.StatusNotFound, err)
	}
	return err
}
