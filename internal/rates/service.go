package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/events"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/rate"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// Store defines the persistence operations required by the rates service.
type Store interface {
	GetActive(ctx context.Context, branchID int64, milkType string) (repo.RateRecord, error)
	List(ctx context.Context, branchID int64, milkType string) ([]repo.RateRecord, error)
	SaveDraft(ctx context.Context, branchID int64, milkType, method string, cfg rate.Config) (repo.RateRecord, error)
	Activate(ctx context.Context, branchID int64, milkType, method string, cfg rate.Config) (repo.RateRecord, error)
	Deactivate(ctx context.Context, branchID int64, milkType string) error
}

// Service manages pricing configurations for branches.
type Service struct {
	Store    Store
	Resolver *Resolver
	Bus      *events.Bus
	Logger   zerolog.Logger
}

// ErrUnknownMethod is returned for methods outside the supported set.
var ErrUnknownMethod = errors.New("unknown pricing method")

func validMethod(method rate.Method) bool {
	switch method {
	case rate.MethodChart, rate.MethodFat, rate.MethodTS, rate.MethodTSNew:
		return true
	}
	return false
}

// tableForMethod reports whether cfg carries any rows for the method.
func tableForMethod(method rate.Method, cfg rate.Config) bool {
	switch method {
	case rate.MethodChart:
		return len(cfg.Chart) > 0
	case rate.MethodFat:
		return len(cfg.FatTable) > 0
	case rate.MethodTS:
		return len(cfg.TSTable) > 0
	case rate.MethodTSNew:
		return len(cfg.TSNewTable) > 0
	}
	return false
}

func validateInput(method rate.Method, cfg rate.Config) error {
	if !validMethod(method) {
		return common.NewAppError("UNKNOWN_METHOD",
			fmt.Sprintf("unsupported pricing method %q", method),
			http.StatusUnprocessableEntity, ErrUnknownMethod)
	}
	if !tableForMethod(method, cfg) {
		return common.NewAppError("EMPTY_RATE_TABLE",
			fmt.Sprintf("config has no rows for method %s", method),
			http.StatusUnprocessableEntity, nil)
	}
	return nil
}

// List returns every saved configuration for the branch and milk type.
func (s *Service) List(ctx context.Context, branchID int64, milkType string) ([]repo.RateRecord, error) {
	return s.Store.List(ctx, branchID, milkType)
}

// Active returns the live configuration, or a 404 AppError when no method
// has been activated for the pair.
func (s *Service) Active(ctx context.Context, branchID int64, milkType string) (repo.RateRecord, error) {
	rec, err := s.Store.GetActive(ctx, branchID, milkType)
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.RateRecord{}, common.NewAppError("RATE_NOT_FOUND",
			"no active rate configuration", http.StatusNotFound, err)
	}
	return rec, err
}

// SaveDraft stores a method's table without changing which method is live.
func (s *Service) SaveDraft(ctx context.Context, branchID int64, milkType string, method rate.Method, cfg rate.Config) (repo.RateRecord, error) {
	if err := validateInput(method, cfg); err != nil {
		return repo.RateRecord{}, err
	}
	return s.Store.SaveDraft(ctx, branchID, milkType, string(method), cfg)
}

// Activate stores the table and makes its method the live one for the pair.
// Any previously active method is deactivated in the same transaction, and
// the cached resolution for the pair is dropped.
func (s *Service) Activate(ctx context.Context, branchID int64, milkType string, method rate.Method, cfg rate.Config) (repo.RateRecord, error) {
	if err := validateInput(method, cfg); err != nil {
		return repo.RateRecord{}, err
	}
	rec, err := s.Store.Activate(ctx, branchID, milkType, string(method), cfg)
	if err != nil {
		return repo.RateRecord{}, err
	}
	if obs.RateActivationsTotal != nil {
		obs.RateActivationsTotal.WithLabelValues(string(method)).Inc()
	}
	if s.Resolver != nil {
		s.Resolver.Invalidate(ctx, branchID, milkType)
	}
	s.emit(ctx, events.TopicRateActivated, branchID,
		fmt.Sprintf("%s rate activated for %s milk", method, strings.ToLower(milkType)),
		map[string]any{"rateId": rec.ID, "method": string(method), "milkType": milkType})
	return rec, nil
}

// Deactivate turns off the live configuration without promoting another.
// New entries for the pair will save unpriced until a method is activated.
func (s *Service) Deactivate(ctx context.Context, branchID int64, milkType string) error {
	if err := s.Store.Deactivate(ctx, branchID, milkType); err != nil {
		return err
	}
	if s.Resolver != nil {
		s.Resolver.Invalidate(ctx, branchID, milkType)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, topic string, branchID int64, message string, payload any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, branchID, message, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("emit event")
	}
}
