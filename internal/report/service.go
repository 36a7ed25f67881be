package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-dairy/internal/billing"
	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// EntrySource defines the queries the report service needs.
type EntrySource interface {
	ListRange(ctx context.Context, branchID int64, from, to time.Time) ([]repo.Entry, error)
	ListRangeByFarmer(ctx context.Context, farmerID int64, from, to time.Time) ([]repo.Entry, error)
}

// FarmerSource provides farmer names for group labels.
type FarmerSource interface {
	ListAll(ctx context.Context) ([]repo.Farmer, error)
	Get(ctx context.Context, id int64) (repo.Farmer, error)
}

// Service derives billing summaries from stored entries. Summaries are
// recomputed on every request (stored snapshots are the source of truth)
// and cached briefly in Redis because collection desks poll them.
type Service struct {
	Entries      EntrySource
	Farmers      FarmerSource
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Currency     string
	Now          func() time.Time
}

// Summary is a full range report for one branch (or all branches).
// Currency is the display symbol for the amounts; the figures themselves
// are plain decimals.
type Summary struct {
	Range       billing.Range         `json:"range"`
	BranchID    int64                 `json:"branchId"`
	Shift       string                `json:"shift"`
	Groups      []billing.FarmerGroup `json:"groups"`
	Totals      billing.Totals        `json:"totals"`
	Shifts      billing.ShiftSummary  `json:"shifts"`
	FarmerCount int                   `json:"farmerCount"`
	Currency    string                `json:"currency,omitempty"`
}

// Statement is one farmer's billing statement over a range.
type Statement struct {
	Farmer   billing.Farmer       `json:"farmer"`
	Range    billing.Range        `json:"range"`
	Group    billing.FarmerGroup  `json:"group"`
	Shifts   billing.ShiftSummary `json:"shifts"`
	Currency string               `json:"currency,omitempty"`
}

// Dashboard carries today's rollup for the landing screen.
type Dashboard struct {
	Date        string               `json:"date"`
	BranchID    int64                `json:"branchId"`
	Totals      billing.Totals       `json:"totals"`
	Shifts      billing.ShiftSummary `json:"shifts"`
	FarmerCount int                  `json:"farmerCount"`
	EntryCount  int                  `json:"entryCount"`
	Currency    string               `json:"currency,omitempty"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// DefaultWindow returns the fallback report window ending today.
func (s *Service) DefaultWindow() billing.Range {
	days := s.DefaultRange
	if days <= 0 {
		days = 10
	}
	end := s.now()
	return billing.Range{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

func toBilling(rows []repo.Entry) []billing.Entry {
	out := make([]billing.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, billing.Entry{
			ID:       row.ID,
			BranchID: row.BranchID,
			FarmerID: row.FarmerID,
			Date:     row.Date,
			Shift:    row.Shift,
			MilkType: row.MilkType,
			Quantity: row.Quantity,
			Fat:      row.Fat,
			SNF:      row.SNF,
			Rate:     row.Rate,
			Amount:   row.Amount,
		})
	}
	return out
}

func toFarmers(rows []repo.Farmer) []billing.Farmer {
	out := make([]billing.Farmer, 0, len(rows))
	for _, row := range rows {
		out = append(out, billing.Farmer{ID: row.ID, Name: row.Name})
	}
	return out
}

func observeReport(kind, cache string) {
	if obs.ReportRequestsTotal != nil {
		obs.ReportRequestsTotal.WithLabelValues(kind, cache).Inc()
	}
}

func cacheKey(parts ...any) string {
	key := "report"
	for _, part := range parts {
		key += ":" + fmt.Sprint(part)
	}
	return key
}

const dateLayout = "2006-01-02"

// Range produces the per-farmer summary for a window, branch and shift.
// The SQL range query over-fetches by date only; the billing filter then
// re-checks every condition so stale index rows can never leak through.
func (s *Service) Range(ctx context.Context, window billing.Range, branchID int64, shift string) (Summary, error) {
	key := cacheKey("range", window.Start.Format(dateLayout), window.End.Format(dateLayout), branchID, shift)
	var cached Summary
	if s.fromCache(ctx, key, &cached) {
		observeReport("range", "hit")
		return cached, nil
	}
	observeReport("range", "miss")

	rows, err := s.Entries.ListRange(ctx, branchID, window.Start, window.End)
	if err != nil {
		return Summary{}, err
	}
	farmers, err := s.Farmers.ListAll(ctx)
	if err != nil {
		return Summary{}, err
	}

	filtered := billing.FilterEntries(toBilling(rows), window, branchID, shift)
	groups := billing.GroupByFarmer(filtered, toFarmers(farmers))

	summary := Summary{
		Range:       window,
		BranchID:    branchID,
		Shift:       shift,
		Groups:      groups,
		Totals:      billing.SumTotals(filtered),
		Shifts:      billing.SummarizeShifts(filtered),
		FarmerCount: len(groups),
		Currency:    s.Currency,
	}
	s.store(ctx, key, summary)
	return summary, nil
}

// FarmerStatement produces one farmer's statement over a window.
func (s *Service) FarmerStatement(ctx context.Context, farmerID int64, window billing.Range) (Statement, error) {
	key := cacheKey("farmer", farmerID, window.Start.Format(dateLayout), window.End.Format(dateLayout))
	var cached Statement
	if s.fromCache(ctx, key, &cached) {
		observeReport("farmer", "hit")
		return cached, nil
	}
	observeReport("farmer", "miss")

	f, err := s.Farmers.Get(ctx, farmerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Statement{}, common.NewAppError("FARMER_NOT_FOUND", "farmer not found", http.StatusNotFound, err)
	}
	if err != nil {
		return Statement{}, err
	}
	rows, err := s.Entries.ListRangeByFarmer(ctx, farmerID, window.Start, window.End)
	if err != nil {
		return Statement{}, err
	}

	filtered := billing.FilterEntries(toBilling(rows), window, 0, billing.ShiftAll)
	groups := billing.GroupByFarmer(filtered, []billing.Farmer{{ID: f.ID, Name: f.Name}})

	statement := Statement{
		Farmer:   billing.Farmer{ID: f.ID, Name: f.Name},
		Range:    window,
		Shifts:   billing.SummarizeShifts(filtered),
		Currency: s.Currency,
	}
	if len(groups) > 0 {
		statement.Group = groups[0]
	} else {
		statement.Group = billing.FarmerGroup{FarmerID: f.ID, FarmerName: f.Name}
	}
	s.store(ctx, key, statement)
	return statement, nil
}

// Today produces the dashboard rollup for the current collection date.
func (s *Service) Today(ctx context.Context, branchID int64) (Dashboard, error) {
	day := s.now()
	window := billing.Range{Start: day, End: day}
	key := cacheKey("today", day.Format(dateLayout), branchID)
	var cached Dashboard
	if s.fromCache(ctx, key, &cached) {
		observeReport("today", "hit")
		return cached, nil
	}
	observeReport("today", "miss")

	rows, err := s.Entries.ListRange(ctx, branchID, window.Start, window.End)
	if err != nil {
		return Dashboard{}, err
	}
	filtered := billing.FilterEntries(toBilling(rows), window, branchID, billing.ShiftAll)

	seen := make(map[int64]bool)
	for _, e := range filtered {
		seen[e.FarmerID] = true
	}
	dash := Dashboard{
		Date:        day.Format(dateLayout),
		BranchID:    branchID,
		Totals:      billing.SumTotals(filtered),
		Shifts:      billing.SummarizeShifts(filtered),
		FarmerCount: len(seen),
		EntryCount:  len(filtered),
		Currency:    s.Currency,
	}
	s.store(ctx, key, dash)
	return dash, nil
}

func (s *Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
