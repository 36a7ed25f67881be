package farmer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// Handler exposes the farmer endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type payload struct {
	BranchID int64  `json:"branchId" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required"`
	MilkType string `json:"milkType" validate:"required"`
	Phone    string `json:"phone"`
	Shift    string `json:"shift"`
	Status   string `json:"status" validate:"omitempty,oneof=active inactive"`
	ManualID string `json:"manualId"`
}

func (h *Handler) decode(r *http.Request) (repo.FarmerInput, error) {
	var req payload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return repo.FarmerInput{}, common.NewAppError("INVALID_BODY", "invalid request body", http.StatusBadRequest, err)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			return repo.FarmerInput{}, common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
		}
	}
	return repo.FarmerInput{
		BranchID: req.BranchID,
		Name:     req.Name,
		MilkType: req.MilkType,
		Phone:    req.Phone,
		Shift:    req.Shift,
		Status:   req.Status,
		ManualID: req.ManualID,
	}, nil
}

// Create registers a farmer.
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

// Update rewrites a farmer.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "farmerID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid farmer id", nil)
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

// Get returns one farmer.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "farmerID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid farmer id", nil)
		return
	}
	row, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}

// Delete removes a farmer.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "farmerID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid farmer id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "deleted"})
}

// List returns a branch's farmers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	branchID := common.ParseInt64Default(r.URL.Query().Get("branchId"), 0)
	if branchID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "branchId is required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	rows, total, err := h.Svc.List(r.Context(), branchID, r.URL.Query().Get("status"), page, perPage)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}
