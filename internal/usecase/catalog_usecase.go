package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/iho/marketplace/internal/domain"
)

// CatalogUseCase serves the merged price catalog cache-aside, with stale-while-revalidate.
//
// The snapshot lives under one cache key together with its own freshness deadline; the
// cache store itself never expires it. A fresh snapshot is returned as-is. A stale one is
// returned immediately while a detached goroutine refetches it. A missing one is fetched
// synchronously. Refreshes for the same key are coalesced within this process.
type CatalogUseCase struct {
	cache          Cache
	source         PriceSource
	key            string
	ttl            time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	logger         zerolog.Logger
	recorder       CatalogRecorder

	group singleflight.Group
	wg    sync.WaitGroup
}

// CatalogConfig configures a CatalogUseCase. Zero values take the package defaults.
type CatalogConfig struct {
	CacheKey       string
	TTL            time.Duration
	RefreshTimeout time.Duration
	Logger         *zerolog.Logger
	Recorder       CatalogRecorder
	Now            func() time.Time
}

// NewCatalogUseCase creates a new CatalogUseCase.
func NewCatalogUseCase(cache Cache, source PriceSource, cfg CatalogConfig) *CatalogUseCase {
	if cfg.CacheKey == "" {
		cfg.CacheKey = DefaultCatalogKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCatalogTTL
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	var recorder CatalogRecorder = noopRecorder{}
	if cfg.Recorder != nil {
		recorder = cfg.Recorder
	}

	return &CatalogUseCase{
		cache:          cache,
		source:         source,
		key:            cfg.CacheKey,
		ttl:            cfg.TTL,
		refreshTimeout: cfg.RefreshTimeout,
		now:            cfg.Now,
		logger:         logger,
		recorder:       recorder,
	}
}

// GetCatalog returns the merged catalog, in tradable-listing order.
//
// Only the synchronous path can fail, with domain.ErrUnavailable, when nothing usable is
// cached and the upstream fetch fails.
func (uc *CatalogUseCase) GetCatalog(ctx context.Context) ([]domain.CatalogItem, error) {
	snapshot, err := uc.readSnapshot(ctx)
	switch {
	case err == nil:
		if snapshot.IsStale(uc.now()) {
			uc.recorder.ObserveCatalogRead(CatalogStateStale)
			uc.refreshInBackground()
		} else {
			uc.recorder.ObserveCatalogRead(CatalogStateFresh)
		}
		return snapshot.Items, nil

	case errors.Is(err, domain.ErrCacheMiss):
		uc.recorder.ObserveCatalogRead(CatalogStateMiss)

	default:
		// An unreadable cache degrades to a miss; the upstream is the source of truth.
		uc.recorder.ObserveCatalogRead(CatalogStateError)
		uc.logger.Warn().Err(err).Str("key", uc.key).Msg("catalog cache read failed")
	}

	start := time.Now()
	items, err := uc.refresh(ctx)
	if err != nil {
		uc.recorder.ObserveCatalogRefresh("failed", time.Since(start))
		if errors.Is(err, domain.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetch catalog: %w", domain.ErrUnavailable, err)
	}
	uc.recorder.ObserveCatalogRefresh("ok", time.Since(start))

	return items, nil
}

// Wait blocks until every background refresh started so far has finished.
func (uc *CatalogUseCase) Wait() {
	uc.wg.Wait()
}

func (uc *CatalogUseCase) readSnapshot(ctx context.Context) (*domain.CatalogSnapshot, error) {
	raw, err := uc.cache.Get(ctx, uc.key)
	if err != nil {
		return nil, err
	}

	var snapshot domain.CatalogSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode catalog snapshot: %w", err)
	}

	return &snapshot, nil
}

// refresh fetches and stores the catalog, sharing the result with concurrent callers.
// The shared fetch is detached from every caller and bounded by refreshTimeout, so a
// caller that goes away only abandons its own wait.
func (uc *CatalogUseCase) refresh(ctx context.Context) ([]domain.CatalogItem, error) {
	ch := uc.group.DoChan(uc.key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.refreshTimeout)
		defer cancel()
		return uc.fetchAndStore(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.([]domain.CatalogItem), nil
	}
}

// refreshInBackground starts a detached refresh. It never blocks the caller, and its
// failure is only logged: the entry stays stale and the next stale read tries again.
func (uc *CatalogUseCase) refreshInBackground() {
	uc.wg.Add(1)

	go func() {
		defer uc.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), uc.refreshTimeout)
		defer cancel()

		start := time.Now()
		result := <-uc.group.DoChan(uc.key, func() (any, error) {
			// Another refresh may have landed since this goroutine saw the stale entry.
			if snapshot, err := uc.readSnapshot(ctx); err == nil && !snapshot.IsStale(uc.now()) {
				return snapshot.Items, nil
			}
			return uc.fetchAndStore(ctx)
		})

		if result.Err != nil {
			uc.recorder.ObserveCatalogRefresh("failed", time.Since(start))
			uc.logger.Warn().Err(result.Err).Str("key", uc.key).Msg("background catalog refresh failed")
			return
		}

		uc.recorder.ObserveCatalogRefresh("ok", time.Since(start))
		uc.logger.Debug().Str("key", uc.key).Bool("shared", result.Shared).Msg("catalog refreshed in background")
	}()
}

func (uc *CatalogUseCase) fetchAndStore(ctx context.Context) ([]domain.CatalogItem, error) {
	var tradable, notTradable []domain.MarketItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := uc.source.ListItems(gctx, true)
		if err != nil {
			return fmt.Errorf("list tradable items: %w", err)
		}
		tradable = items
		return nil
	})
	g.Go(func() error {
		items, err := uc.source.ListItems(gctx, false)
		if err != nil {
			return fmt.Errorf("list non-tradable items: %w", err)
		}
		notTradable = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := domain.MergeCatalog(tradable, notTradable)

	payload, err := json.Marshal(domain.CatalogSnapshot{
		Items:     items,
		ExpiresAt: uc.now().Add(uc.ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("encode catalog snapshot: %w", err)
	}

	// No store-side expiry; freshness is the deadline inside the payload.
	if err := uc.cache.Set(ctx, uc.key, payload, 0); err != nil {
		uc.logger.Warn().Err(err).Str("key", uc.key).Msg("catalog cache write failed")
	}

	return items, nil
}
