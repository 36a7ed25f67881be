package entry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/events"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/rate"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// Store defines the persistence operations required by the entry service.
type Store interface {
	Insert(ctx context.Context, in repo.EntryInput) (repo.Entry, error)
	Update(ctx context.Context, id int64, in repo.EntryInput) (repo.Entry, error)
	Get(ctx context.Context, id int64) (repo.Entry, error)
	Delete(ctx context.Context, id int64) error
	ListForDate(ctx context.Context, branchID int64, date time.Time, shift string, farmerID int64) ([]repo.Entry, error)
}

// ConfigResolver resolves the live pricing configuration for a pair.
type ConfigResolver interface {
	Resolve(ctx context.Context, branchID int64, milkType string) (rate.Method, rate.Config, bool, error)
}

// Service records milk collection entries. Pricing happens once, at save
// time: the computed rate and amount are stored on the row and reports read
// them verbatim, so later rate changes never rewrite history.
type Service struct {
	Store    Store
	Resolver ConfigResolver
	Bus      *events.Bus
	Logger   zerolog.Logger
}

// Input is a collection reading as submitted from the desk.
type Input struct {
	BranchID    int64     `json:"branchId" validate:"required,gt=0"`
	FarmerID    int64     `json:"farmerId" validate:"required,gt=0"`
	Date        time.Time `json:"date" validate:"required"`
	Shift       string    `json:"shift" validate:"required"`
	MilkType    string    `json:"milkType" validate:"required"`
	Quantity    float64   `json:"quantity" validate:"gte=0"`
	Fat         float64   `json:"fat" validate:"gte=0"`
	SNF         float64   `json:"snf" validate:"gte=0"`
	QualityNote string    `json:"qualityNote"`
}

// Saved is a persisted entry plus the pricing outcome for this save.
// Priced is false when no active config existed or no table row matched;
// the entry is stored anyway with a zero rate so staff can reprice later.
type Saved struct {
	repo.Entry
	Priced bool `json:"priced"`
}

func (s *Service) price(ctx context.Context, in Input) (rate.Result, error) {
	method, cfg, active, err := s.Resolver.Resolve(ctx, in.BranchID, in.MilkType)
	if err != nil {
		return rate.Result{}, fmt.Errorf("resolve rate config: %w", err)
	}
	if !active {
		return rate.Result{}, nil
	}
	m := rate.Measurement{Fat: in.Fat, SNF: in.SNF, Quantity: in.Quantity}
	return rate.Compute(method, m, cfg, rate.MilkType(in.MilkType)), nil
}

func observeComputation(milkType string, matched bool) {
	if obs.EntriesComputedTotal != nil {
		obs.EntriesComputedTotal.WithLabelValues(milkType, strconv.FormatBool(matched)).Inc()
	}
}

// Preview prices a reading without saving it, for live feedback on the
// collection form.
func (s *Service) Preview(ctx context.Context, in Input) (rate.Result, error) {
	return s.price(ctx, in)
}

// Create prices and stores a new entry.
func (s *Service) Create(ctx context.Context, in Input) (Saved, error) {
	result, err := s.price(ctx, in)
	if err != nil {
		return Saved{}, err
	}
	observeComputation(in.MilkType, result.Matched)

	row, err := s.Store.Insert(ctx, repo.EntryInput{
		BranchID:    in.BranchID,
		FarmerID:    in.FarmerID,
		Date:        in.Date,
		Shift:       in.Shift,
		MilkType:    in.MilkType,
		Quantity:    in.Quantity,
		Fat:         in.Fat,
		SNF:         in.SNF,
		Rate:        result.RatePerLitre,
		Amount:      result.Amount,
		QualityNote: in.QualityNote,
	})
	if err != nil {
		return Saved{}, err
	}

	s.emit(ctx, events.TopicEntryCreated, in.BranchID,
		fmt.Sprintf("entry recorded for farmer %d (%s, %.2f L)", in.FarmerID, in.Shift, in.Quantity),
		map[string]any{"entryId": row.ID, "farmerId": in.FarmerID, "amount": row.Amount})
	if !result.Matched {
		s.emit(ctx, events.TopicEntryUnpriced, in.BranchID,
			fmt.Sprintf("entry %d saved without a rate (fat %.1f, snf %.1f)", row.ID, in.Fat, in.SNF),
			map[string]any{"entryId": row.ID, "milkType": in.MilkType})
	}
	return Saved{Entry: row, Priced: result.Matched}, nil
}

// Update rewrites an entry and reprices it against the configuration active
// right now, not the one in force at the original save.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Saved, error) {
	if _, err := s.Store.Get(ctx, id); err != nil {
		return Saved{}, notFound(err)
	}

	result, err := s.price(ctx, in)
	if err != nil {
		return Saved{}, err
	}
	observeComputation(in.MilkType, result.Matched)

	row, err := s.Store.Update(ctx, id, repo.EntryInput{
		BranchID:    in.BranchID,
		FarmerID:    in.FarmerID,
		Date:        in.Date,
		Shift:       in.Shift,
		MilkType:    in.MilkType,
		Quantity:    in.Quantity,
		Fat:         in.Fat,
		SNF:         in.SNF,
		Rate:        result.RatePerLitre,
		Amount:      result.Amount,
		QualityNote: in.QualityNote,
	})
	if err != nil {
		return Saved{}, notFound(err)
	}

	s.emit(ctx, events.TopicEntryUpdated, in.BranchID,
		fmt.Sprintf("entry %d updated", id),
		map[string]any{"entryId": id, "amount": row.Amount})
	return Saved{Entry: row, Priced: result.Matched}, nil
}

// Get fetches a single entry.
func (s *Service) Get(ctx context.Context, id int64) (repo.Entry, error) {
	row, err := s.Store.Get(ctx, id)
	if err != nil {
		return repo.Entry{}, notFound(err)
	}
	return row, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

// ListForDate returns a branch's entries for one collection date, optionally
// narrowed to a shift or a single farmer.
func (s *Service) ListForDate(ctx context.Context, branchID int64, date time.Time, shift string, farmerID int64) ([]repo.Entry, error) {
	return s.Store.ListForDate(ctx, branchID, date, shift, farmerID)
}

func (s *Service) emit(ctx context.Context, topic string, branchID int64, message string, payload any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, branchID, message, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("emit event")
	}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewAppError("ENTRY_NOT_FOUND", "entry not found", http.StatusNotFound, err)
	}
	return err
}
