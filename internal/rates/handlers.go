package rates

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/rate"
)

// Handler exposes the rate configuration endpoints for a branch.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type ratePayload struct {
	MilkType string      `json:"milkType" validate:"required"`
	Method   string      `json:"method" validate:"required"`
	Config   rate.Config `json:"config"`
}

func (h *Handler) decode(r *http.Request, dst *ratePayload) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.NewAppError("INVALID_BODY", "invalid request body", http.StatusBadRequest, err)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			return common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
		}
	}
	return nil
}

// List returns all saved configurations for the branch and milk type.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	branchID := common.ParseInt64Default(chi.URLParam(r, "branchID"), 0)
	milkType := r.URL.Query().Get("milkType")
	if branchID <= 0 || milkType == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "branch id and milkType are required", nil)
		return
	}
	records, err := h.Svc.List(r.Context(), branchID, milkType)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": records})
}

// Active returns the live configuration for the branch and milk type.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	branchID := common.ParseInt64Default(chi.URLParam(r, "branchID"), 0)
	milkType := r.URL.Query().Get("milkType")
	if branchID <= 0 || milkType == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "branch id and milkType are required", nil)
		return
	}
	rec, err := h.Svc.Active(r.Context(), branchID, milkType)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

// SaveDraft stores a method's table without activating it.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	branchID := common.ParseInt64Default(chi.URLParam(r, "branchID"), 0)
	if branchID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid branch id", nil)
		return
	}
	var req ratePayload
	if err := h.decode(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	rec, err := h.Svc.SaveDraft(r.Context(), branchID, req.MilkType, rate.ParseMethod(req.Method), req.Config)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

// Activate stores the table and makes it the live method for the pair.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	branchID := common.ParseInt64Default(chi.URLParam(r, "branchID"), 0)
	if branchID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid branch id", nil)
		return
	}
	var req ratePayload
	if err := h.decode(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	rec, err := h.Svc.Activate(r.Context(), branchID, req.MilkType, rate.ParseMethod(req.Method), req.Config)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

// Deactivate turns off the live configuration for the branch and milk type.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	branchID := common.ParseInt64Default(chi.URLParam(r, "branchID"), 0)
	milkType := r.URL.Query().Get("milkType")
	if branchID <= 0 || milkType == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "branch id and milkType are required", nil)
		return
	}
	if err := h.Svc.Deactivate(r.Context(), branchID, milkType); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "deactivated"})
}
