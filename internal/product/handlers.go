package product

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// Handler exposes the product endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type payload struct {
	BranchID int64   `json:"branchId" validate:"required,gt=0"`
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	Active   *bool   `json:"active"`
}

func (h *Handler) decode(r *http.Request) (repo.ProductInput, error) {
	var req payload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return repo.ProductInput{}, common.NewAppError("INVALID_BODY", "invalid request body", http.StatusBadRequest, err)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			return repo.ProductInput{}, common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
		}
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return repo.ProductInput{
		BranchID: req.BranchID,
		Name:     req.Name,
		Price:    req.Price,
		Unit:     req.Unit,
		Category: req.Category,
		Active:   active,
	}, nil
}

// Create adds a product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(r)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	row, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": row})
}

// Update rewrites a product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "productID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	in, err := h.decode(r)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	row, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}

// Get returns one product.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "productID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	row, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}

// Delete removes a product.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "productID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "deleted"})
}

// List returns a branch's products; pass active=true to hide retired ones.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	branchID := common.ParseInt64Default(q.Get("branchId"), 0)
	if branchID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "branchId is required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	rows, total, err := h.Svc.List(r.Context(), branchID, q.Get("active") == "true", page, perPage)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}
