package notify

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// FeedStore defines the persistence operations behind the notification feed.
type FeedStore interface {
	ListRecent(ctx context.Context, branchID int64, limit, offset int) ([]repo.Notification, int64, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, branchID int64) (int64, error)
}

// Handler exposes the dashboard notification feed.
type Handler struct {
	Store FeedStore
}

// List returns the newest notifications, optionally scoped to a branch.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	branchID := common.ParseInt64Default(r.URL.Query().Get("branchId"), 0)
	page, perPage := common.ParsePagination(r, 50)
	rows, total, err := h.Store.ListRecent(r.Context(), branchID, perPage, (page-1)*perPage)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// MarkRead flips one notification to read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := common.ParseInt64Default(chi.URLParam(r, "notificationID"), 0)
	if id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid notification id", nil)
		return
	}
	if err := h.Store.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", "notification not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "read"})
}

// MarkAllRead flips every unread notification, optionally for one branch.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	branchID := common.ParseInt64Default(r.URL.Query().Get("branchId"), 0)
	updated, err := h.Store.MarkAllRead(r.Context(), branchID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int64{"updated": updated}})
}
