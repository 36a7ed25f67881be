package product_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/product"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

type stubStore struct {
	next int64
	rows map[int64]repo.Product
}

func newStubStore() *stubStore {
	return &stubStore{rows: make(map[int64]repo.Product)}
}

func rowFromInput(id int64, in repo.ProductInput) repo.Product {
	return repo.Product{
		ID: id, BranchID: in.BranchID, Name: in.Name, Price: in.Price,
		Unit: in.Unit, Category: in.Category, Active: in.Active,
	}
}

func (s *stubStore) Insert(_ context.Context, in repo.ProductInput) (repo.Product, error) {
	s.next++
	row := rowFromInput(s.next, in)
	s.rows[row.ID] = row
	return row, nil
}

func (s *stubStore) Update(_ context.Context, id int64, in repo.ProductInput) (repo.Product, error) {
	if _, ok := s.rows[id]; !ok {
		return repo.Product{}, pgx.ErrNoRows
	}
	row := rowFromInput(id, in)
	s.rows[id] = row
	return row, nil
}

func (s *stubStore) Get(_ context.Context, id int64) (repo.Product, error) {
	row, ok := s.rows[id]
	if !ok {
		return repo.Product{}, pgx.ErrNoRows
	}
	return row, nil
}

func (s *stubStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.rows, id)
	return nil
}

func (s *stubStore) ListByBranch(_ context.Context, branchID int64, activeOnly bool, limit, offset int) ([]repo.Product, int64, error) {
	var matched []repo.Product
	for id := int64(1); id <= s.next; id++ {
		row, ok := s.rows[id]
		if !ok {
			continue
		}
		if row.BranchID == branchID && (!activeOnly || row.Active) {
			matched = append(matched, row)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func newRouter(store *stubStore) http.Handler {
	handler := &product.Handler{
		Svc:      &product.Service{Store: store},
		Validate: validator.New(),
	}
	r := chi.NewRouter()
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{productID}", handler.Get)
		r.Put("/{productID}", handler.Update)
		r.Delete("/{productID}", handler.Delete)
	})
	return r
}

func TestCreateProduct(t *testing.T) {
	store := newStubStore()
	router := newRouter(store)

	body := `{"branchId":1,"name":"Cattle Feed 50kg","price":1450,"unit":"bag","category":"feed"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"active":true`)
	require.Len(t, store.rows, 1)
}

func TestListProductsPaginates(t *testing.T) {
	store := newStubStore()
	router := newRouter(store)

	for _, name := range []string{"Feed", "Ghee", "Mineral Mix"} {
		body := `{"branchId":1,"name":"` + name + `","price":100}`
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products?branchId=1&page=2&limit=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data       []repo.Product    `json:"data"`
		Pagination common.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "Mineral Mix", resp.Data[0].Name)
	require.Equal(t, 3, resp.Pagination.TotalItems)
}

func TestGetProductNotFound(t *testing.T) {
	router := newRouter(newStubStore())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products/99", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "PRODUCT_NOT_FOUND")
}
