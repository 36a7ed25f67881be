package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/notify"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

type stubFeed struct {
	rows []repo.Notification
}

func (s *stubFeed) ListRecent(_ context.Context, branchID int64, limit, offset int) ([]repo.Notification, int64, error) {
	var matched []repo.Notification
	for _, row := range s.rows {
		if branchID == 0 || row.BranchID == branchID || row.BranchID == 0 {
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

func (s *stubFeed) MarkRead(_ context.Context, id int64) error {
	for i, row := range s.rows {
		if row.ID == id {
			s.rows[i].Status = "read"
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (s *stubFeed) MarkAllRead(_ context.Context, _ int64) (int64, error) {
	var n int64
	for i, row := range s.rows {
		if row.Status == "unread" {
			s.rows[i].Status = "read"
			n++
		}
	}
	return n, nil
}

func newFeedRouter(feed *stubFeed) http.Handler {
	handler := &notify.Handler{Store: feed}
	r := chi.NewRouter()
	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/read-all", handler.MarkAllRead)
		r.Post("/{notificationID}/read", handler.MarkRead)
	})
	return r
}

func TestFeedListPaginates(t *testing.T) {
	feed := &stubFeed{rows: []repo.Notification{
		{ID: 1, BranchID: 1, Type: "entry.created", Status: "unread"},
		{ID: 2, BranchID: 1, Type: "entry.unpriced", Status: "unread"},
		{ID: 3, BranchID: 1, Type: "farmer.absent", Status: "unread"},
	}}
	router := newFeedRouter(feed)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?branchId=1&page=2&limit=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data       []repo.Notification `json:"data"`
		Pagination common.Pagination   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, int64(3), resp.Data[0].ID)
	require.Equal(t, 3, resp.Pagination.TotalItems)
}

func TestFeedMarkReadNotFound(t *testing.T) {
	router := newFeedRouter(&stubFeed{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/notifications/99/read", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "NOTIFICATION_NOT_FOUND")
}

func TestFeedMarkAllRead(t *testing.T) {
	feed := &stubFeed{rows: []repo.Notification{
		{ID: 1, BranchID: 1, Status: "unread"},
		{ID: 2, BranchID: 1, Status: "read"},
	}}
	router := newFeedRouter(feed)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"updated":1`)
}
