package sessions_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/studio-gateway/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
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

func countingLoader(calls *atomic.Int32) sessions.Loader {
	return func(_ context.Context, id string) (*sessions.Session, error) {
		calls.Add(1)
		return &sessions.Session{ID: id, AccessToken: "AT"}, nil
	}
}

func TestCacheReusesWithinTTL(t *testing.T) {
	clock := newFakeClock()
	cache := sessions.NewCache(time.Second, sessions.WithCacheClock(clock.Now))
	var calls atomic.Int32

	first, err := cache.Get(context.Background(), "s1", countingLoader(&calls))
	require.NoError(t, err)

	clock.Advance(999 * time.Millisecond)
	second, err := cache.Get(context.Background(), "s1", countingLoader(&calls))
	require.NoError(t, err)
	require.Same(t, first, second)
	require.EqualValues(t, 1, calls.Load())

	clock.Advance(time.Millisecond)
	third, err := cache.Get(context.Background(), "s1", countingLoader(&calls))
	require.NoError(t, err)
	require.NotSame(t, first, third)
	require.EqualValues(t, 2, calls.Load())
}

func TestCacheCoalescesConcurrentLoads(t *testing.T) {
	cache := sessions.NewCache(time.Second)
	var calls atomic.Int32
	release := make(chan struct{})

	load := func(_ context.Context, id string) (*sessions.Session, error) {
		calls.Add(1)
		<-release
		return &sessions.Session{ID: id}, nil
	}

	const n = 16
	results := make([]*sessions.Session, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := cache.Get(context.Background(), "s1", load)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
	for _, s := range results {
		require.Same(t, results[0], s)
	}
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	cache := sessions.NewCache(time.Second)
	var calls atomic.Int32
	failing := func(context.Context, string) (*sessions.Session, error) {
		calls.Add(1)
		return nil, errors.New("store down")
	}

	_, err := cache.Get(context.Background(), "s1", failing)
	require.Error(t, err)
	_, err = cache.Get(context.Background(), "s1", failing)
	require.Error(t, err)
	require.EqualValues(t, 2, calls.Load())
	require.Zero(t, cache.Len())
}

func TestCacheClear(t *testing.T) {
	cache := sessions.NewCache(time.Minute)
	var calls atomic.Int32

	_, err := cache.Get(context.Background(), "s1", countingLoader(&calls))
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "s2", countingLoader(&calls))
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	cache.Clear("s1")
	require.Equal(t, 1, cache.Len())
	_, err = cache.Get(context.Background(), "s1", countingLoader(&calls))
	require.NoError(t, err)
	require.EqualValues(t, 3, calls.Load())

	cache.ClearAll()
	require.Zero(t, cache.Len())
}

func TestCacheDisabled(t *testing.T) {
	cache := sessions.NewCache(0)
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		_, err := cache.Get(context.Background(), "s1", countingLoader(&calls))
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, calls.Load())
}
