package report

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-dairy/internal/billing"
	"github.com/noah-isme/backend-dairy/internal/common"
)

// Handler exposes the reporting endpoints.
type Handler struct {
	Svc *Service
}

func (h *Handler) window(r *http.Request) (billing.Range, error) {
	q := r.URL.Query()
	fromStr := q.Get("from")
	toStr := q.Get("to")
	if fromStr == "" && toStr == "" {
		return h.Svc.DefaultWindow(), nil
	}
	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return billing.Range{}, common.NewAppError("INVALID_DATE", "from must be YYYY-MM-DD", http.StatusBadRequest, err)
	}
	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return billing.Range{}, common.NewAppError("INVALID_DATE", "to must be YYYY-MM-DD", http.StatusBadRequest, err)
	}
	if to.Before(from) {
		return billing.Range{}, common.NewAppError("INVALID_RANGE", "to must not be before from", http.StatusBadRequest, nil)
	}
	return billing.Range{Start: from, End: to}, nil
}

// Range returns the per-farmer summary for a window, branch and shift.
func (h *Handler) Range(w http.ResponseWriter, r *http.Request) {
	window, err := h.window(r)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	q := r.URL.Query()
	branchID := common.ParseInt64Default(q.Get("branchId"), 0)
	shift := q.Get("shift")
	if shift == "" {
		shift = billing.ShiftAll
	}
	summary, err := h.Svc.Range(r.Context(), window, branchID, shift)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

// FarmerStatement returns one farmer's billing statement for a window.
func (h *Handler) FarmerStatement(w http.ResponseWriter, r *http.Request) {
	farmerID := common.ParseInt64Default(chi.URLParam(r, "farmerID"), 0)
	if farmerID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid farmer id", nil)
		return
	}
	window, err := h.window(r)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	statement, err := h.Svc.FarmerStatement(r.Context(), farmerID, window)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": statement})
}

// Today returns the dashboard rollup for the current date.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	branchID := common.ParseInt64Default(r.URL.Query().Get("branchId"), 0)
	dash, err := h.Svc.Today(r.Context(), branchID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dash})
}
