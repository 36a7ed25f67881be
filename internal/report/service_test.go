package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/billing"
	"github.com/noah-isme/backend-dairy/internal/report"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

type stubEntries struct {
	rangeCalls int
	rows       []repo.Entry
}

func (s *stubEntries) ListRange(_ context.Context, branchID int64, _, _ time.Time) ([]repo.Entry, error) {
	s.rangeCalls++
	return s.rows, nil
}

func (s *stubEntries) ListRangeByFarmer(_ context.Context, farmerID int64, _, _ time.Time) ([]repo.Entry, error) {
	var out []repo.Entry
	for _, row := range s.rows {
		if row.FarmerID == farmerID {
			out = append(out, row)
		}
	}
	return out, nil
}

type stubFarmers struct {
	rows []repo.Farmer
}

func (s *stubFarmers) ListAll(context.Context) ([]repo.Farmer, error) {
	return s.rows, nil
}

func (s *stubFarmers) Get(_ context.Context, id int64) (repo.Farmer, error) {
	for _, row := range s.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return repo.Farmer{ID: id}, nil
}

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func sampleRows() []repo.Entry {
	return []repo.Entry{
		{ID: 1, BranchID: 1, FarmerID: 10, Date: day(1), Shift: "Morning", MilkType: "Cow", Quantity: 10, Fat: 4.0, SNF: 8.5, Rate: 1.25, Amount: 12.50},
		{ID: 2, BranchID: 1, FarmerID: 10, Date: day(1), Shift: "Evening", MilkType: "Buffalo", Quantity: 5, Fat: 6.0, SNF: 9.0, Rate: 0.48, Amount: 2.40},
		{ID: 3, BranchID: 1, FarmerID: 11, Date: day(2), Shift: "Morning", MilkType: "Cow", Quantity: 8, Fat: 3.8, SNF: 8.2, Rate: 1.20, Amount: 9.60},
		{ID: 4, BranchID: 2, FarmerID: 12, Date: day(2), Shift: "Morning", MilkType: "Cow", Quantity: 6, Fat: 4.2, SNF: 8.6, Rate: 1.28, Amount: 7.68},
	}
}

func newService(t *testing.T, entries *stubEntries, farmers *stubFarmers) *report.Service {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &report.Service{
		Entries:      entries,
		Farmers:      farmers,
		R:            rdb,
		TTL:          time.Minute,
		DefaultRange: 10,
		Currency:     "₹",
		Now:          func() time.Time { return day(2) },
	}
}

func TestRangeSummary(t *testing.T) {
	entries := &stubEntries{rows: sampleRows()}
	farmers := &stubFarmers{rows: []repo.Farmer{{ID: 10, Name: "Ramesh"}, {ID: 11, Name: "Sita"}}}
	svc := newService(t, entries, farmers)

	window := billing.Range{Start: day(1), End: day(2)}
	summary, err := svc.Range(context.Background(), window, 1, billing.ShiftAll)
	require.NoError(t, err)

	require.Equal(t, 2, summary.FarmerCount)
	require.InDelta(t, 23.0, summary.Totals.Quantity, 1e-9)
	require.InDelta(t, 24.50, summary.Totals.Amount, 1e-9)
	require.Equal(t, 2, summary.Shifts.Morning.Count)
	require.Equal(t, 1, summary.Shifts.Evening.Count)

	require.Equal(t, "Ramesh", summary.Groups[0].FarmerName)
	require.InDelta(t, 10.0, summary.Groups[0].Cow.Quantity, 1e-9)
	require.InDelta(t, 5.0, summary.Groups[0].Buffalo.Quantity, 1e-9)
}

func TestRangeSummaryCached(t *testing.T) {
	entries := &stubEntries{rows: sampleRows()}
	svc := newService(t, entries, &stubFarmers{})

	window := billing.Range{Start: day(1), End: day(2)}
	if _, err := svc.Range(context.Background(), window, 1, billing.ShiftAll); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.Range(context.Background(), window, 1, billing.ShiftAll); err != nil {
		t.Fatalf("second call: %v", err)
	}
	require.Equal(t, 1, entries.rangeCalls)
}

func TestRangeUnknownFarmerLabelled(t *testing.T) {
	entries := &stubEntries{rows: sampleRows()}
	svc := newService(t, entries, &stubFarmers{rows: []repo.Farmer{{ID: 10, Name: "Ramesh"}}})

	window := billing.Range{Start: day(1), End: day(2)}
	summary, err := svc.Range(context.Background(), window, 1, billing.ShiftAll)
	require.NoError(t, err)
	require.Equal(t, billing.UnknownFarmerName, summary.Groups[1].FarmerName)
}

func TestFarmerStatement(t *testing.T) {
	entries := &stubEntries{rows: sampleRows()}
	farmers := &stubFarmers{rows: []repo.Farmer{{ID: 10, Name: "Ramesh"}}}
	svc := newService(t, entries, farmers)

	statement, err := svc.FarmerStatement(context.Background(), 10, billing.Range{Start: day(1), End: day(2)})
	require.NoError(t, err)
	require.Equal(t, "Ramesh", statement.Farmer.Name)
	require.Len(t, statement.Group.Entries, 2)
	require.InDelta(t, 14.90, statement.Group.Total.Amount, 1e-9)
	require.Equal(t, 1, statement.Shifts.Evening.Count)
	require.Equal(t, "₹", statement.Currency)
}

func TestTodayDashboard(t *testing.T) {
	entries := &stubEntries{rows: sampleRows()}
	svc := newService(t, entries, &stubFarmers{})

	dash, err := svc.Today(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "2025-06-02", dash.Date)
	require.Equal(t, 1, dash.EntryCount)
	require.Equal(t, 1, dash.FarmerCount)
	require.InDelta(t, 8.0, dash.Totals.Quantity, 1e-9)
}
