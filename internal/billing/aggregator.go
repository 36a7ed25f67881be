// Package billing aggregates persisted collection entries into the per-farmer
// and shift-level summaries used by report and billing screens. All functions
// are pure over their inputs: stored rates and amounts are read verbatim and
// never recomputed, so historical entries stay stable as rate configs evolve.
package billing

import (
	"strings"
	"time"
)

// Shift filter values accepted by FilterEntries.
const (
	ShiftAll     = "all"
	ShiftMorning = "Morning"
	ShiftEvening = "Evening"
)

// Entry mirrors a persisted collection entry. Rate and Amount are the
// point-in-time snapshot computed when the entry was saved.
type Entry struct {
	ID       int64
	BranchID int64
	FarmerID int64
	Date     time.Time
	Shift    string
	MilkType string
	Quantity float64
	Fat      float64
	SNF      float64
	Rate     float64
	Amount   float64
}

// Farmer carries the fields the aggregator needs to label a group.
type Farmer struct {
	ID   int64
	Name string
}

// Range is an inclusive report window. Bounds are expanded to whole days.
type Range struct {
	Start time.Time
	End   time.Time
}

// FilterEntries keeps entries inside the window, optionally restricted to a
// branch (branchID 0 means any) and a shift ("all" or a case-insensitive
// shift name). Callers often over-fetch from the store, so this re-validates
// every condition defensively. Input order is preserved.
func FilterEntries(entries []Entry, r Range, branchID int64, shift string) []Entry {
	if r.Start.IsZero() || r.End.IsZero() {
		return nil
	}
	start := startOfDay(r.Start)
	end := endOfDay(r.End)
	anyShift := shift == "" || strings.EqualFold(shift, ShiftAll)

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if branchID != 0 && e.BranchID != branchID {
			continue
		}
		if e.Date.Before(start) || e.Date.After(end) {
			continue
		}
		if !anyShift && !strings.EqualFold(e.Shift, shift) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// TypeTotals accumulates one milk type within a farmer group.
type TypeTotals struct {
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
	AvgFat   float64 `json:"avgFat"`
	AvgSNF   float64 `json:"avgSnf"`

	fatWeighted float64
	snfWeighted float64
}

func (t *TypeTotals) add(e Entry) {
	t.Quantity += e.Quantity
	t.Amount += e.Amount
	t.Count++
	t.fatWeighted += e.Fat * e.Quantity
	t.snfWeighted += e.SNF * e.Quantity
}

func (t *TypeTotals) finish() {
	if t.Quantity > 0 {
		t.AvgFat = t.fatWeighted / t.Quantity
		t.AvgSNF = t.snfWeighted / t.Quantity
	}
}

// FarmerGroup is the derived per-farmer aggregate for one report window.
// It is recomputed on every view and never persisted.
type FarmerGroup struct {
	FarmerID   int64      `json:"farmerId"`
	FarmerName string     `json:"farmerName"`
	Entries    []Entry    `json:"entries"`
	Cow        TypeTotals `json:"cow"`
	Buffalo    TypeTotals `json:"buffalo"`
	Total      TypeTotals `json:"total"`
}

// UnknownFarmerName labels groups whose entries reference a missing farmer
// record. Collection data is never dropped because of a dangling reference.
const UnknownFarmerName = "Unknown"

// GroupByFarmer accumulates entries per farmer in a single pass, splitting
// cow and buffalo totals and keeping combined totals across both. Averages
// are quantity-weighted; a type with no quantity reports zero averages.
// Groups are returned in order of first appearance.
func GroupByFarmer(entries []Entry, farmers []Farmer) []FarmerGroup {
	names := make(map[int64]string, len(farmers))
	for _, f := range farmers {
		names[f.ID] = f.Name
	}

	index := make(map[int64]int, len(farmers))
	groups := make([]FarmerGroup, 0, len(farmers))
	for _, e := range entries {
		i, ok := index[e.FarmerID]
		if !ok {
			name, known := names[e.FarmerID]
			if !known {
				name = UnknownFarmerName
			}
			i = len(groups)
			index[e.FarmerID] = i
			groups = append(groups, FarmerGroup{FarmerID: e.FarmerID, FarmerName: name})
		}
		g := &groups[i]
		g.Entries = append(g.Entries, e)
		if isBuffalo(e.MilkType) {
			g.Buffalo.add(e)
		} else {
			g.Cow.add(e)
		}
		g.Total.add(e)
	}

	for i := range groups {
		groups[i].Cow.finish()
		groups[i].Buffalo.finish()
		groups[i].Total.finish()
	}
	return groups
}

// Totals is a quantity/amount sum over an entry set.
type Totals struct {
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// SumTotals reduces entries to combined quantity and amount.
func SumTotals(entries []Entry) Totals {
	var t Totals
	for _, e := range entries {
		t.Quantity += e.Quantity
		t.Amount += e.Amount
	}
	return t
}

// ShiftTotals accumulates one shift's rollup.
type ShiftTotals struct {
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

// ShiftSummary splits a filtered entry set by collection shift.
type ShiftSummary struct {
	Morning ShiftTotals `json:"morning"`
	Evening ShiftTotals `json:"evening"`
}

// SummarizeShifts computes morning and evening rollups in a single pass over
// the already-filtered entry set. Entries with an unrecognised shift value
// are counted as morning, matching how the collection form defaults.
func SummarizeShifts(entries []Entry) ShiftSummary {
	var s ShiftSummary
	for _, e := range entries {
		target := &s.Morning
		if strings.EqualFold(e.Shift, ShiftEvening) {
			target = &s.Evening
		}
		target.Quantity += e.Quantity
		target.Amount += e.Amount
		target.Count++
	}
	return s
}

func isBuffalo(milkType string) bool {
	return strings.Contains(strings.ToLower(milkType), "buffalo")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
