// Package notify runs the background checks that produce "no milk today"
// notifications for the society staff.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/events"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// TaskAbsenceScan is the asynq task type for the end-of-shift absence scan.
const TaskAbsenceScan = "absence:scan"

// AbsencePayload selects what the scan covers. An empty date means today;
// an empty branch list means every branch.
type AbsencePayload struct {
	Date      string  `json:"date,omitempty"`
	Shift     string  `json:"shift"`
	BranchIDs []int64 `json:"branchIds,omitempty"`
}

// NewAbsenceTask builds the asynq task for a scan.
func NewAbsenceTask(payload AbsencePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAbsenceScan, data), nil
}

// FarmerSource lists the farmers a branch expects deliveries from.
type FarmerSource interface {
	ListByBranch(ctx context.Context, branchID int64, status string, limit, offset int) ([]repo.Farmer, int64, error)
}

// EntrySource reports which farmers actually delivered.
type EntrySource interface {
	FarmerIDsWithEntry(ctx context.Context, branchID int64, date time.Time, shift string) (map[int64]bool, error)
}

// BranchSource enumerates branches when no explicit list is configured.
type BranchSource interface {
	IDs(ctx context.Context) ([]int64, error)
}

// AbsenceScanner finds active farmers with no entry for a date and shift and
// raises a notification per absentee through the event bus.
type AbsenceScanner struct {
	Farmers  FarmerSource
	Entries  EntrySource
	Branches BranchSource
	Bus      *events.Bus
	Logger   zerolog.Logger
	Now      func() time.Time
}

// HandleTask is the asynq handler for TaskAbsenceScan.
func (s *AbsenceScanner) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload AbsencePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode absence payload: %w", err)
	}

	date := s.now()
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return fmt.Errorf("parse absence date: %w", err)
		}
		date = parsed
	}
	shift := payload.Shift
	if shift == "" {
		shift = "Evening"
	}

	count, err := s.Scan(ctx, date, shift, payload.BranchIDs)
	if err != nil {
		return err
	}
	s.Logger.Info().
		Str("date", date.Format("2006-01-02")).
		Str("shift", shift).
		Int("absent", count).
		Msg("absence scan complete")
	return nil
}

// Scan runs the absence check and returns how many notifications were
// raised. Inactive farmers and farmers registered for the other shift are
// not expected to deliver and are skipped.
func (s *AbsenceScanner) Scan(ctx context.Context, date time.Time, shift string, branchIDs []int64) (int, error) {
	if len(branchIDs) == 0 {
		ids, err := s.Branches.IDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("list branches: %w", err)
		}
		branchIDs = ids
	}

	total := 0
	for _, branchID := range branchIDs {
		farmers, _, err := s.Farmers.ListByBranch(ctx, branchID, "active", 0, 0)
		if err != nil {
			return total, fmt.Errorf("list farmers for branch %d: %w", branchID, err)
		}
		delivered, err := s.Entries.FarmerIDsWithEntry(ctx, branchID, date, shift)
		if err != nil {
			return total, fmt.Errorf("list deliveries for branch %d: %w", branchID, err)
		}

		for _, f := range farmers {
			if !expectedForShift(f.Shift, shift) {
				continue
			}
			if delivered[f.ID] {
				continue
			}
			if s.Bus != nil {
				_, err := s.Bus.Emit(ctx, events.TopicFarmerAbsent, branchID,
					fmt.Sprintf("%s did not deliver milk (%s shift)", f.Name, strings.ToLower(shift)),
					map[string]any{"farmerId": f.ID, "date": date.Format("2006-01-02"), "shift": shift})
				if err != nil {
					s.Logger.Warn().Err(err).Int64("farmer_id", f.ID).Msg("emit absence")
				}
			}
			if obs.AbsenceNotificationsTotal != nil {
				obs.AbsenceNotificationsTotal.Inc()
			}
			total++
		}
	}
	return total, nil
}

func (s *AbsenceScanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// expectedForShift reports whether a farmer registered for farmerShift is
// expected to deliver in the scanned shift. Empty and "Both" mean always.
func expectedForShift(farmerShift, scanned string) bool {
	if farmerShift == "" || strings.EqualFold(farmerShift, "Both") {
		return true
	}
	return strings.EqualFold(farmerShift, scanned)
}
