package product

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// Store defines the persistence operations required by the product service.
type Store interface {
	Insert(ctx context.Context, in repo.ProductInput) (repo.Product, error)
	Update(ctx context.Context, id int64, in repo.ProductInput) (repo.Product, error)
	Get(ctx context.Context, id int64) (repo.Product, error)
	Delete(ctx context.Context, id int64) error
	ListByBranch(ctx context.Context, branchID int64, activeOnly bool, limit, offset int) ([]repo.Product, int64, error)
}

// Service manages a branch's dairy product catalogue.
type Service struct {
	Store Store
}

// Create adds a product.
func (s *Service) Create(ctx context.Context, in repo.ProductInput) (repo.Product, error) {
	return s.Store.Insert(ctx, in)
}

// Update rewrites a product.
func (s *Service) Update(ctx context.Context, id int64, in repo.ProductInput) (repo.Product, error) {
	row, err := s.Store.Update(ctx, id, in)
	if err != nil {
		return repo.Product{}, notFound(err)
	}
	return row, nil
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id int64) (repo.Product, error) {
	row, err := s.Store.Get(ctx, id)
	if err != nil {
		return repo.Product{}, notFound(err)
	}
	return row, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

// List returns a page of a branch's products plus the unpaged total.
func (s *Service) List(ctx context.Context, branchID int64, activeOnly bool, page, perPage int) ([]repo.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	return s.Store.ListByBranch(ctx, branchID, activeOnly, perPage, (page-1)*perPage)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, err)
	}
	return err
}
