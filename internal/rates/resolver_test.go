package rates_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-dairy/internal/rate"
	"github.com/noah-isme/backend-dairy/internal/rates"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

type stubActiveStore struct {
	calls  int
	record repo.RateRecord
	err    error
}

func (s *stubActiveStore) GetActive(context.Context, int64, string) (repo.RateRecord, error) {
	s.calls++
	if s.err != nil {
		return repo.RateRecord{}, s.err
	}
	return s.record, nil
}

func newTestResolver(t *testing.T, store rates.ActiveStore) (*rates.Resolver, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &rates.Resolver{Store: store, R: rdb, TTL: time.Minute}, mr
}

func TestResolveCachesActiveConfig(t *testing.T) {
	store := &stubActiveStore{record: repo.RateRecord{
		Method:   "TS",
		MilkType: "Cow",
		Config:   rate.Config{TSTable: []rate.TSRow{{MinFat: 3, MaxFat: 6, FatRate: 10, MinSNF: 7, MaxSNF: 9}}},
		IsActive: true,
	}}
	resolver, _ := newTestResolver(t, store)

	for i := 0; i < 3; i++ {
		method, cfg, ok, err := resolver.Resolve(context.Background(), 1, "Cow")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("resolve %d: expected active config", i)
		}
		if method != rate.MethodTS {
			t.Fatalf("resolve %d: unexpected method %q", i, method)
		}
		if len(cfg.TSTable) != 1 {
			t.Fatalf("resolve %d: config not carried through cache", i)
		}
	}
	if store.calls != 1 {
		t.Fatalf("expected 1 DB call, got %d", store.calls)
	}
}

func TestResolveNormalisesStoredMethodCasing(t *testing.T) {
	store := &stubActiveStore{record: repo.RateRecord{
		Method:   "ts_new",
		MilkType: "Cow",
		Config:   rate.Config{TSNewTable: []rate.TSNewRow{{TSFrom: 10, TSTo: 16, Rate: 10}}},
		IsActive: true,
	}}
	resolver, _ := newTestResolver(t, store)

	// miss then hit must both return the canonical method
	for i := 0; i < 2; i++ {
		method, _, ok, err := resolver.Resolve(context.Background(), 1, "Cow")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("resolve %d: expected active config", i)
		}
		if method != rate.MethodTSNew {
			t.Fatalf("resolve %d: got method %q, want %q", i, method, rate.MethodTSNew)
		}
	}
	if store.calls != 1 {
		t.Fatalf("expected second resolve to come from cache, got %d DB calls", store.calls)
	}
}

func TestResolveCachesAbsence(t *testing.T) {
	store := &stubActiveStore{err: pgx.ErrNoRows}
	resolver, _ := newTestResolver(t, store)

	for i := 0; i < 2; i++ {
		_, _, ok, err := resolver.Resolve(context.Background(), 2, "Buffalo")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if ok {
			t.Fatalf("resolve %d: expected no active config", i)
		}
	}
	if store.calls != 1 {
		t.Fatalf("expected absence to be cached, got %d DB calls", store.calls)
	}
}

func TestInvalidateDropsCachedResolution(t *testing.T) {
	store := &stubActiveStore{record: repo.RateRecord{
		Method: "FAT", MilkType: "Cow",
		Config:   rate.Config{FatTable: []rate.FatRow{{Fat: 4.0, Rate: 32}}},
		IsActive: true,
	}}
	resolver, _ := newTestResolver(t, store)

	if _, _, _, err := resolver.Resolve(context.Background(), 1, "Cow"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	resolver.Invalidate(context.Background(), 1, "Cow")
	if _, _, _, err := resolver.Resolve(context.Background(), 1, "Cow"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected invalidation to force a reload, got %d DB calls", store.calls)
	}
}
