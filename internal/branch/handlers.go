package branch

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// Handler exposes the branch endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type payload struct {
	Name          string `json:"name" validate:"required"`
	Location      string `json:"location"`
	MemberName    string `json:"memberName"`
	MemberMobile  string `json:"memberMobile"`
	ContactNumber string `json:"contactNumber"`
	Type          string `json:"type"`
}

func (h *Handler) decode(r *http.Request) (repo.BranchInput, error) {
	var req payload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return repo.BranchInput{}, common.NewAppError("INVALID_BODY", "invalid request body", http.StatusBadRequest, err)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			return repo.BranchInput{}, common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
		}
	}
	return repo.BranchInput{
		Name:          req.Name,
		Location:      req.Location,
		MemberName:    req.MemberName,
		MemberMobile:  req.MemberMobile,
		ContactNumber: req.ContactNumber,
		Type:          req.Type,
	}, nil
}

// Create adds a branch.
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

// Update rewrites a branch.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "branchID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid branch id", nil)
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

// Get returns one branch.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "branchID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid branch id", nil)
		return
	}
	row, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}

// Delete removes a branch.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "branchID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid branch id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "deleted"})
}

// List returns every branch.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Svc.List(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
