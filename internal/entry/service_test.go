package entry_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/entry"
	"github.com/noah-isme/backend-dairy/internal/events"
	"github.com/noah-isme/backend-dairy/internal/rate"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

type stubStore struct {
	next    int64
	rows    map[int64]repo.Entry
	updated map[int64]repo.EntryInput
}

func newStubStore() *stubStore {
	return &stubStore{rows: make(map[int64]repo.Entry), updated: make(map[int64]repo.EntryInput)}
}

func entryFromInput(id int64, in repo.EntryInput) repo.Entry {
	return repo.Entry{
		ID: id, BranchID: in.BranchID, FarmerID: in.FarmerID, Date: in.Date,
		Shift: in.Shift, MilkType: in.MilkType, Quantity: in.Quantity,
		Fat: in.Fat, SNF: in.SNF, Rate: in.Rate, Amount: in.Amount,
		QualityNote: in.QualityNote,
	}
}

func (s *stubStore) Insert(_ context.Context, in repo.EntryInput) (repo.Entry, error) {
	s.next++
	row := entryFromInput(s.next, in)
	s.rows[row.ID] = row
	return row, nil
}

func (s *stubStore) Update(_ context.Context, id int64, in repo.EntryInput) (repo.Entry, error) {
	if _, ok := s.rows[id]; !ok {
		return repo.Entry{}, pgx.ErrNoRows
	}
	s.updated[id] = in
	row := entryFromInput(id, in)
	s.rows[id] = row
	return row, nil
}

func (s *stubStore) Get(_ context.Context, id int64) (repo.Entry, error) {
	row, ok := s.rows[id]
	if !ok {
		return repo.Entry{}, pgx.ErrNoRows
	}
	return row, nil
}

func (s *stubStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.rows, id)
	return nil
}

func (s *stubStore) ListForDate(_ context.Context, _ int64, _ time.Time, _ string, _ int64) ([]repo.Entry, error) {
	out := make([]repo.Entry, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out, nil
}

type stubResolver struct {
	method rate.Method
	cfg    rate.Config
	active bool
}

func (s stubResolver) Resolve(context.Context, int64, string) (rate.Method, rate.Config, bool, error) {
	return s.method, s.cfg, s.active, nil
}

type memoryNotifications struct {
	next int64
	rows []repo.Notification
}

func (m *memoryNotifications) Insert(_ context.Context, branchID int64, kind, message string, occurredAt time.Time) (repo.Notification, error) {
	m.next++
	row := repo.Notification{ID: m.next, BranchID: branchID, Type: kind, Message: message, OccurredAt: occurredAt}
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *memoryNotifications) topics() []string {
	out := make([]string, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row.Type)
	}
	return out
}

func tsCowResolver() stubResolver {
	return stubResolver{
		method: rate.MethodTS,
		cfg: rate.Config{TSTable: []rate.TSRow{
			{MinFat: 3.0, MaxFat: 6.0, FatRate: 10, MinSNF: 7.0, MaxSNF: 9.0},
		}},
		active: true,
	}
}

func sampleInput() entry.Input {
	return entry.Input{
		BranchID: 1,
		FarmerID: 9,
		Date:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Shift:    "Morning",
		MilkType: "Cow",
		Quantity: 10,
		Fat:      4.0,
		SNF:      8.5,
	}
}

func TestCreatePricesAndPersistsSnapshot(t *testing.T) {
	store := newStubStore()
	notes := &memoryNotifications{}
	svc := &entry.Service{
		Store:    store,
		Resolver: tsCowResolver(),
		Bus:      &events.Bus{Store: notes},
	}

	saved, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	require.True(t, saved.Priced)
	require.InDelta(t, 1.25, saved.Rate, 1e-9)
	require.InDelta(t, 12.50, saved.Amount, 1e-9)
	require.Equal(t, []string{events.TopicEntryCreated}, notes.topics())
}

func TestCreateWithoutActiveConfigSavesUnpriced(t *testing.T) {
	store := newStubStore()
	notes := &memoryNotifications{}
	svc := &entry.Service{
		Store:    store,
		Resolver: stubResolver{},
		Bus:      &events.Bus{Store: notes},
	}

	saved, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	require.False(t, saved.Priced)
	require.Zero(t, saved.Rate)
	require.Zero(t, saved.Amount)
	require.Equal(t, []string{events.TopicEntryCreated, events.TopicEntryUnpriced}, notes.topics())
}

func TestCreateOutOfBandReadingSavesUnpriced(t *testing.T) {
	store := newStubStore()
	svc := &entry.Service{Store: store, Resolver: tsCowResolver()}

	in := sampleInput()
	in.Fat = 9.5
	saved, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.False(t, saved.Priced)
	require.Zero(t, saved.Amount)
}

func TestUpdateRepricesAgainstCurrentConfig(t *testing.T) {
	store := newStubStore()
	svc := &entry.Service{Store: store, Resolver: tsCowResolver()}

	saved, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)

	// a different table is live by the time the correction lands
	svc.Resolver = stubResolver{
		method: rate.MethodFat,
		cfg:    rate.Config{FatTable: []rate.FatRow{{Fat: 4.0, Rate: 2.0}}},
		active: true,
	}
	updated, err := svc.Update(context.Background(), saved.ID, sampleInput())
	require.NoError(t, err)
	require.True(t, updated.Priced)
	require.InDelta(t, 2.0, updated.Rate, 1e-9)
	require.InDelta(t, 20.0, updated.Amount, 1e-9)
}

func TestUpdateMissingEntry(t *testing.T) {
	svc := &entry.Service{Store: newStubStore(), Resolver: tsCowResolver()}
	_, err := svc.Update(context.Background(), 404, sampleInput())
	app, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "ENTRY_NOT_FOUND", app.Code)
}

func TestDeleteMissingEntry(t *testing.T) {
	svc := &entry.Service{Store: newStubStore(), Resolver: tsCowResolver()}
	err := svc.Delete(context.Background(), 404)
	app, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "ENTRY_NOT_FOUND", app.Code)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	store := newStubStore()
	svc := &entry.Service{Store: store, Resolver: tsCowResolver()}

	result, err := svc.Preview(context.Background(), sampleInput())
	require.NoError(t, err)
	require.True(t, result.Matched)
	require.InDelta(t, 1.25, result.RatePerLitre, 1e-9)
	require.Empty(t, store.rows)
}
