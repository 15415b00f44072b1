package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/marketplace/internal/domain"
	"github.com/iho/marketplace/internal/usecase"
	"github.com/iho/marketplace/internal/usecase/mocks"
)

// memoryCache is a Cache backed by a map.
type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	sets    int
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.lastTTL = ttl
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *memoryCache) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

func (c *memoryCache) Sets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

func (c *memoryCache) snapshot(t *testing.T, key string) domain.CatalogSnapshot {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var s domain.CatalogSnapshot
	require.NoError(t, json.Unmarshal(c.data[key], &s))
	return s
}

func (c *memoryCache) seed(t *testing.T, key string, snapshot domain.CatalogSnapshot) {
	t.Helper()
	raw, err := json.Marshal(snapshot)
	require.NoError(t, err)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var (
	tradableItems = []domain.MarketItem{
		{MarketHashName: "AK-47 | Redline", MinPrice: price("12.50")},
		{MarketHashName: "AWP | Asiimov", MinPrice: price("40.00")},
	}
	notTradableItems = []domain.MarketItem{
		{MarketHashName: "AK-47 | Redline", MinPrice: price("10.00")},
	}
)

func newCatalogUseCase(cache usecase.Cache, source usecase.PriceSource, clock *fakeClock) *usecase.CatalogUseCase {
	return usecase.NewCatalogUseCase(cache, source, usecase.CatalogConfig{
		CacheKey: "catalog",
		TTL:      time.Hour,
		Now:      clock.Now,
	})
}

func expectFetch(source *mocks.MockPriceSource, times int) {
	source.EXPECT().ListItems(gomock.Any(), true).Return(tradableItems, nil).Times(times)
	source.EXPECT().ListItems(gomock.Any(), false).Return(notTradableItems, nil).Times(times)
}

func TestCatalogUseCase_MissFetchesAndStores(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPriceSource(ctrl)
	expectFetch(source, 1)

	cache := newMemoryCache()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	uc := newCatalogUseCase(cache, source, clock)

	items, err := uc.GetCatalog(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "AK-47 | Redline", items[0].Name)
	assert.True(t, price("12.50").Equal(*items[0].TradableMinPrice))
	require.NotNil(t, items[0].NotTradableMinPrice)
	assert.True(t, price("10.00").Equal(*items[0].NotTradableMinPrice))
	assert.Equal(t, "AWP | Asiimov", items[1].Name)
	assert.Nil(t, items[1].NotTradableMinPrice)

	assert.Equal(t, 1, cache.Sets())
	assert.Equal(t, time.Duration(0), cache.lastTTL, "freshness lives in the payload, not in the store")

	stored := cache.snapshot(t, "catalog")
	assert.True(t, stored.ExpiresAt.Equal(clock.Now().Add(time.Hour)))
	assert.Len(t, stored.Items, 2)
}

func TestCatalogUseCase_FreshHitSkipsUpstream(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPriceSource(ctrl)
	expectFetch(source, 1)

	cache := newMemoryCache()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	uc := newCatalogUseCase(cache, source, clock)

	first, err := uc.GetCatalog(context.Background())
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)

	for i := 0; i < 5; i++ {
		again, err := uc.GetCatalog(context.Background())
		require.NoError(t, err)

		a, _ := json.Marshal(first)
		b, _ := json.Marshal(again)
		assert.JSONEq(t, string(a), string(b))
	}

	uc.Wait()
	assert.Equal(t, 1, cache.Sets())
}

func TestCatalogUseCase_StaleServesOldValueAndRefreshesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPriceSource(ctrl)
	expectFetch(source, 1)

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := newMemoryCache()
	old := []domain.CatalogItem{{Name: "Old Item", TradableMinPrice: price("1.00")}}
	cache.seed(t, "catalog", domain.CatalogSnapshot{Items: old, ExpiresAt: clock.Now().Add(-time.Minute)})

	uc := newCatalogUseCase(cache, source, clock)

	items, err := uc.GetCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Old Item", items[0].Name)

	uc.Wait()

	assert.Equal(t, 1, cache.Sets())
	refreshed := cache.snapshot(t, "catalog")
	assert.Len(t, refreshed.Items, 2)
	assert.True(t, refreshed.ExpiresAt.After(clock.Now()))

	items, err = uc.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCatalogUseCase_ExpiryBoundary(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPriceSource(ctrl)
	expectFetch(source, 1)

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := newMemoryCache()
	cache.seed(t, "catalog", domain.CatalogSnapshot{Items: []domain.CatalogItem{}, ExpiresAt: clock.Now()})

	uc := newCatalogUseCase(cache, source, clock)

	// Still fresh at the deadline itself.
	_, err := uc.GetCatalog(context.Background())
	require.NoError(t, err)
	uc.Wait()
	assert.Equal(t, 0, cache.Sets())

	clock.Advance(time.Millisecond)

	_, err = uc.GetCatalog(context.Background())
	require.NoError(t, err)
	uc.Wait()
	assert.Equal(t, 1, cache.Sets())
}

func TestCatalogUseCase_ConcurrentStaleReadsShareOneRefresh(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := newMemoryCache()
	cache.seed(t, "catalog", domain.CatalogSnapshot{Items: []domain.CatalogItem{}, ExpiresAt: clock.Now().Add(-time.Second)})

	release := make(chan struct{})
	source := &blockingSource{release: release}
	uc := newCatalogUseCase(cache, source, clock)

	for i := 0; i < 10; i++ {
		_, err := uc.GetCatalog(context.Background())
		require.NoError(t, err)
	}

	close(release)
	uc.Wait()

	assert.Equal(t, int32(2), source.calls.Load(), "one tradable and one non-tradable fetch")
	assert.Equal(t, 1, cache.Sets())
}

func TestCatalogUseCase_CancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := newMemoryCache()

	release := make(chan struct{})
	source := &blockingSource{release: release}
	uc := newCatalogUseCase(cache, source, clock)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()

	firstErr := make(chan error, 1)
	go func() {
		_, err := uc.GetCatalog(firstCtx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return source.calls.Load() == 2 }, time.Second, time.Millisecond)

	type outcome struct {
		items []domain.CatalogItem
		err   error
	}
	second := make(chan outcome, 1)
	go func() {
		items, err := uc.GetCatalog(context.Background())
		second <- outcome{items: items, err: err}
	}()
	require.Eventually(t, func() bool { return cache.Gets() == 2 }, time.Second, time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, domain.ErrUnavailable)
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Len(t, got.items, 2)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}

	require.Eventually(t, func() bool { return cache.Sets() == 1 }, time.Second, time.Millisecond)
	assert.Len(t, cache.snapshot(t, "catalog").Items, 2)
}

// blockingSource holds every fetch until release is closed.
type blockingSource struct {
	release chan struct{}
	calls   atomic.Int32
}

func (s *blockingSource) ListItems(ctx context.Context, tradable bool) ([]domain.MarketItem, error) {
	s.calls.Add(1)
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if tradable {
		return tradableItems, nil
	}
	return notTradableItems, nil
}

func TestCatalogUseCase_UpstreamFailureOnMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPriceSource(ctrl)
	source.EXPECT().ListItems(gomock.Any(), gomock.Any()).Return(nil, errors.New("502 bad gateway")).AnyTimes()

	cache := newMemoryCache()
	clock := &fakeClock{now: time.Now()}
	uc := newCatalogUseCase(cache, source, clock)

	items, err := uc.GetCatalog(context.Background())
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Nil(t, items)
	assert.Equal(t, 0, cache.Sets())
}

func TestCatalogUseCase_BackgroundFailureIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPriceSource(ctrl)
	source.EXPECT().ListItems(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout")).AnyTimes()

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := newMemoryCache()
	old := []domain.CatalogItem{{Name: "Old Item", TradableMinPrice: price("1.00")}}
	cache.seed(t, "catalog", domain.CatalogSnapshot{Items: old, ExpiresAt: clock.Now().Add(-time.Hour)})

	uc := newCatalogUseCase(cache, source, clock)

	items, err := uc.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Old Item", items[0].Name)

	uc.Wait()

	assert.Equal(t, 0, cache.Sets())
	assert.Equal(t, "Old Item", cache.snapshot(t, "catalog").Items[0].Name)
}

func TestCatalogUseCase_CacheReadErrorFallsBackToUpstream(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPriceSource(ctrl)
	expectFetch(source, 1)

	cache := mocks.NewMockCache(ctrl)
	cache.EXPECT().Get(gomock.Any(), "catalog").Return(nil, errors.New("redis: connection refused"))
	cache.EXPECT().Set(gomock.Any(), "catalog", gomock.Any(), time.Duration(0)).Return(errors.New("redis: connection refused"))

	clock := &fakeClock{now: time.Now()}
	uc := newCatalogUseCase(cache, source, clock)

	items, err := uc.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCatalogUseCase_CorruptPayloadIsRefetched(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPriceSource(ctrl)
	expectFetch(source, 1)

	cache := newMemoryCache()
	cache.data["catalog"] = []byte("not json")

	clock := &fakeClock{now: time.Now()}
	uc := newCatalogUseCase(cache, source, clock)

	items, err := uc.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, cache.Sets())
}

func TestCatalogUseCase_EmptyUpstream(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPriceSource(ctrl)
	source.EXPECT().ListItems(gomock.Any(), gomock.Any()).Return([]domain.MarketItem{}, nil).Times(2)

	cache := newMemoryCache()
	uc := newCatalogUseCase(cache, source, &fakeClock{now: time.Now()})

	items, err := uc.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
