package entry

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-dairy/internal/common"
)

// Handler exposes the collection entry endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// looseFloat accepts a reading as either a JSON number or the free-text
// string collection forms submit. Empty or unparsable text degrades to
// zero; the engine prices a zero reading as unmatched rather than the
// desk losing the entry.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*f = looseFloat(v)
	case string:
		*f = looseFloat(common.ParseFloatDefault(v, 0))
	default:
		*f = 0
	}
	return nil
}

// payload mirrors Input but takes the date as the plain YYYY-MM-DD string
// collection forms submit.
type payload struct {
	BranchID    int64      `json:"branchId" validate:"required,gt=0"`
	FarmerID    int64      `json:"farmerId" validate:"required,gt=0"`
	Date        string     `json:"date" validate:"required"`
	Shift       string     `json:"shift" validate:"required,oneof=Morning Evening morning evening"`
	MilkType    string     `json:"milkType" validate:"required"`
	Quantity    looseFloat `json:"quantity" validate:"gte=0"`
	Fat         looseFloat `json:"fat" validate:"gte=0"`
	SNF         looseFloat `json:"snf" validate:"gte=0"`
	QualityNote string     `json:"qualityNote"`
}

func (h *Handler) decode(r *http.Request) (Input, error) {
	var req payload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return Input{}, common.NewAppError("INVALID_BODY", "invalid request body", http.StatusBadRequest, err)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			return Input{}, common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
		}
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return Input{}, common.NewAppError("INVALID_DATE", "date must be YYYY-MM-DD", http.StatusBadRequest, err)
	}
	return Input{
		BranchID:    req.BranchID,
		FarmerID:    req.FarmerID,
		Date:        date,
		Shift:       req.Shift,
		MilkType:    req.MilkType,
		Quantity:    float64(req.Quantity),
		Fat:         float64(req.Fat),
		SNF:         float64(req.SNF),
		QualityNote: req.QualityNote,
	}, nil
}

// Create prices and stores a new entry.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(r)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	saved, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": saved})
}

// Preview prices a reading without saving it.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(r)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	result, err := h.Svc.Preview(r.Context(), in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Update rewrites an entry, repricing against the current active config.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "entryID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid entry id", nil)
		return
	}
	in, err := h.decode(r)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	saved, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": saved})
}

// Get returns one entry.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "entryID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid entry id", nil)
		return
	}
	row, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}

// Delete removes an entry.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "entryID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid entry id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "deleted"})
}

// List returns a branch's entries for a collection date. Shift and farmerId
// are optional query filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	branchID := common.ParseInt64Default(q.Get("branchId"), 0)
	if branchID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "branchId is required", nil)
		return
	}
	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD", nil)
		return
	}
	shift := q.Get("shift")
	farmerID := common.ParseInt64Default(q.Get("farmerId"), 0)

	rows, err := h.Svc.ListForDate(r.Context(), branchID, date, shift, farmerID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
