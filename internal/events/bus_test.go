package events_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/events"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

type stubStore struct {
	next   int64
	rows   []repo.Notification
	insErr error
}

func (s *stubStore) Insert(_ context.Context, branchID int64, kind, message string, occurredAt time.Time) (repo.Notification, error) {
	if s.insErr != nil {
		return repo.Notification{}, s.insErr
	}
	s.next++
	row := repo.Notification{
		ID:         s.next,
		BranchID:   branchID,
		Type:       kind,
		Message:    message,
		Status:     "unread",
		OccurredAt: occurredAt,
	}
	s.rows = append(s.rows, row)
	return row, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &stubStore{}
	first := &captureNotifier{}
	second := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{first, second}}

	payload := map[string]any{"entryId": int64(7)}
	event, err := bus.Emit(context.Background(), events.TopicEntryCreated, 3, "entry recorded", payload)
	require.NoError(t, err)
	require.Equal(t, int64(1), event.ID)
	require.Equal(t, events.TopicEntryCreated, event.Topic)
	require.Equal(t, int64(3), event.BranchID)
	require.JSONEq(t, `{"entryId":7}`, string(event.Payload))

	require.Len(t, store.rows, 1)
	require.Equal(t, "entry recorded", store.rows[0].Message)
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	require.Equal(t, event.ID, first.events[0].ID)
}

func TestEmitNotifierFailureStillPersists(t *testing.T) {
	store := &stubStore{}
	bad := &captureNotifier{err: errors.New("relay down")}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{bad}}

	event, err := bus.Emit(context.Background(), events.TopicEntryUnpriced, 1, "no active rate", nil)
	require.Error(t, err)
	require.Equal(t, int64(1), event.ID)
	require.Len(t, store.rows, 1)
	require.JSONEq(t, `{}`, string(event.Payload))
}

func TestEmitRejectsEmptyTopic(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), "  ", 1, "msg", nil)
	require.Error(t, err)
}

func TestEmitRejectsUnknownTopic(t *testing.T) {
	store := &stubStore{}
	bus := events.Bus{Store: store}
	_, err := bus.Emit(context.Background(), "entry.craeted", 1, "msg", nil)
	require.Error(t, err)
	require.Empty(t, store.rows)
}

func TestEmitRejectsInvalidRawPayload(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicEntryCreated, 1, "msg", json.RawMessage("{broken"))
	require.Error(t, err)
}

func TestWebhookNotifierSignsDeliveries(t *testing.T) {
	var (
		gotSignature string
		gotEventID   string
		gotTimestamp string
		gotBody      []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Signature")
		gotEventID = r.Header.Get("X-Event-ID")
		gotTimestamp = r.Header.Get("X-Timestamp")
		var buf [4096]byte
		n, _ := r.Body.Read(buf[:])
		gotBody = append([]byte(nil), buf[:n]...)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := events.NewWebhookNotifier(server.URL, "top-secret")
	require.NoError(t, err)

	event := events.Event{
		ID:         42,
		Topic:      events.TopicRateActivated,
		BranchID:   2,
		Message:    "TS activated",
		Payload:    json.RawMessage(`{"method":"TS"}`),
		OccurredAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, notifier.Notify(context.Background(), event))

	require.Equal(t, "42", gotEventID)
	require.NotEmpty(t, gotTimestamp)

	mac := hmac.New(sha256.New, []byte("top-secret"))
	mac.Write([]byte(gotTimestamp))
	mac.Write([]byte("."))
	mac.Write([]byte(gotEventID))
	mac.Write([]byte("."))
	mac.Write(gotBody)
	require.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSignature)
}

func TestWebhookNotifierRejectsRemoteHTTP(t *testing.T) {
	_, err := events.NewWebhookNotifier("http://example.com/hook", "")
	require.Error(t, err)
}
