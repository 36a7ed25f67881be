// Package society serves the single society-wide settings record.
package society

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// Store defines the settings persistence operations.
type Store interface {
	Get(ctx context.Context) (repo.Settings, error)
	Save(ctx context.Context, in repo.SettingsInput) (repo.Settings, error)
}

// Handler exposes the settings endpoints.
type Handler struct {
	Store    Store
	Validate *validator.Validate
}

type payload struct {
	SocietyName string       `json:"societyName" validate:"required"`
	Location    string       `json:"location"`
	OwnerMobile string       `json:"ownerMobile"`
	Language    string       `json:"language"`
	Owners      []repo.Owner `json:"owners"`
}

// Get returns the society settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.Get(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": settings})
}

// Save upserts the society settings.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req payload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), nil)
			return
		}
	}
	if req.Language == "" {
		req.Language = "en"
	}
	settings, err := h.Store.Save(r.Context(), repo.SettingsInput{
		SocietyName: req.SocietyName,
		Location:    req.Location,
		OwnerMobile: req.OwnerMobile,
		Language:    req.Language,
		Owners:      req.Owners,
	})
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": settings})
}
