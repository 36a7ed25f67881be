package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-dairy/internal/rate"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

// ActiveStore is the single lookup the resolver needs.
type ActiveStore interface {
	GetActive(ctx context.Context, branchID int64, milkType string) (repo.RateRecord, error)
}

// Resolver answers "which method and table price this branch's milk right
// now". Entry saves hit it on every keystroke-level preview, so resolutions
// are cached in Redis with a short TTL and dropped on activation.
type Resolver struct {
	Store ActiveStore
	R     *redis.Client
	TTL   time.Duration
}

type cachedResolution struct {
	Method string      `json:"method"`
	Config rate.Config `json:"config"`
	Active bool        `json:"active"`
}

func resolverKey(branchID int64, milkType string) string {
	return fmt.Sprintf("rates:active:%d:%s", branchID, milkType)
}

// Resolve returns the active method and config for the pair. ok is false
// when no method is activated; that outcome is cached too, so branches
// without rates do not hammer the database.
func (r *Resolver) Resolve(ctx context.Context, branchID int64, milkType string) (rate.Method, rate.Config, bool, error) {
	key := resolverKey(branchID, milkType)
	if cached, hit := r.fromCache(ctx, key); hit {
		return rate.Method(cached.Method), cached.Config, cached.Active, nil
	}

	rec, err := r.Store.GetActive(ctx, branchID, milkType)
	if errors.Is(err, pgx.ErrNoRows) {
		r.store(ctx, key, cachedResolution{})
		return "", rate.Config{}, false, nil
	}
	if err != nil {
		return "", rate.Config{}, false, err
	}

	// normalised before caching so hit and miss paths agree on casing
	method := rate.ParseMethod(rec.Method)
	r.store(ctx, key, cachedResolution{Method: string(method), Config: rec.Config, Active: true})
	return method, rec.Config, true, nil
}

// Invalidate drops the cached resolution for the pair.
func (r *Resolver) Invalidate(ctx context.Context, branchID int64, milkType string) {
	if r == nil || r.R == nil {
		return
	}
	_ = r.R.Del(ctx, resolverKey(branchID, milkType)).Err()
}

func (r *Resolver) fromCache(ctx context.Context, key string) (cachedResolution, bool) {
	if r.R == nil || r.TTL <= 0 {
		return cachedResolution{}, false
	}
	data, err := r.R.Get(ctx, key).Bytes()
	if err != nil {
		return cachedResolution{}, false
	}
	var cached cachedResolution
	if err := json.Unmarshal(data, &cached); err != nil {
		return cachedResolution{}, false
	}
	return cached, true
}

func (r *Resolver) store(ctx context.Context, key string, value cachedResolution) {
	if r.R == nil || r.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = r.R.Set(ctx, key, data, r.TTL).Err()
}
