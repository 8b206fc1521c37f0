package shortlink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "leadconnect/pkg/domain-errors"
)

type stubCache struct {
	pages   map[string]*TrackPage
	getErr  error
	setErr  error
	setHits int
}

func newStubCache() *stubCache {
	return &stubCache{pages: map[string]*TrackPage{}}
}

func (c *stubCache) Get(_ context.Context, slug string) (*TrackPage, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.pages[slug], nil
}

func (c *stubCache) Set(_ context.Context, page *TrackPage) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.setHits++
	c.pages[page.Slug] = page
	return nil
}

func TestResolveFromStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	want := mem.Add("promo", "https://example.com/landing")

	svc := New(mem)
	page, err := svc.Resolve(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, want, *page)
}

func TestResolveUnknownSlug(t *testing.T) {
	svc := New(NewMemoryStore())
	_, err := svc.Resolve(context.Background(), "missing")
	assert.True(t, derrors.HasCode(err, derrors.CodeNotFound))
}

func TestResolveEmptySlug(t *testing.T) {
	svc := New(NewMemoryStore())
	_, err := svc.Resolve(context.Background(), "")
	assert.True(t, derrors.HasCode(err, derrors.CodeValidation))
}

func TestResolvePopulatesCacheOnMiss(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	mem.Add("promo", "https://example.com/landing")
	cache := newStubCache()

	svc := New(mem, WithCache(cache))
	_, err := svc.Resolve(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.setHits)

	// Second lookup is served from the cache.
	page, err := svc.Resolve(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/landing", page.RedirectTo)
	assert.Equal(t, 1, cache.setHits, "no second population")
}

type countingStore struct {
	inner Store
	mu    sync.Mutex
	calls int
}

func (c *countingStore) FindBySlug(ctx context.Context, slug string) (*TrackPage, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	time.Sleep(10 * time.Millisecond) // widen the window for concurrent callers
	return c.inner.FindBySlug(ctx, slug)
}

func TestResolveCollapsesConcurrentLookups(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	mem.Add("promo", "https://example.com/landing")
	counting := &countingStore{inner: mem}

	svc := New(counting)

	const callers = 20
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			page, err := svc.Resolve(ctx, "promo")
			assert.NoError(t, err)
			assert.NotNil(t, page)
		}()
	}
	wg.Wait()

	counting.mu.Lock()
	defer counting.mu.Unlock()
	assert.Less(t, counting.calls, callers, "concurrent lookups share store queries")
}

func TestResolveSurvivesCacheFailure(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	mem.Add("promo", "https://example.com/landing")
	cache := newStubCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	svc := New(mem, WithCache(cache))
	page, err := svc.Resolve(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/landing", page.RedirectTo)
}
