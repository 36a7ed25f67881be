package branch

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// Store defines the persistence operations required by the branch service.
type Store interface {
	Insert(ctx context.Context, in repo.BranchInput) (repo.Branch, error)
	Update(ctx context.Context, id int64, in repo.BranchInput) (repo.Branch, error)
	Get(ctx context.Context, id int64) (repo.Branch, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]repo.Branch, error)
}

// Service manages collection centre branches.
type Service struct {
	Store Store
}

// Create adds a branch; empty type defaults to collection.
func (s *Service) Create(ctx context.Context, in repo.BranchInput) (repo.Branch, error) {
	if in.Type == "" {
		in.Type = "collection"
	}
	return s.Store.Insert(ctx, in)
}

// Update rewrites a branch.
func (s *Service) Update(ctx context.Context, id int64, in repo.BranchInput) (repo.Branch, error) {
	row, err := s.Store.Update(ctx, id, in)
	if err != nil {
		return repo.Branch{}, notFound(err)
	}
	return row, nil
}

// Get fetches one branch.
func (s *Service) Get(ctx context.Context, id int64) (repo.Branch, error) {
	row, err := s.Store.Get(ctx, id)
	if err != nil {
		return repo.Branch{}, notFound(err)
	}
	return row, nil
}

// Delete removes a branch along with its farmers, entries and rates.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

// List returns every branch.
func (s *Service) List(ctx context.Context) ([]repo.Branch, error) {
	return s.Store.List(ctx)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewAppError("BRANCH_NOT_FOUND", "branch not found", http.StatusNotFound, err)
	}
	return err
}
