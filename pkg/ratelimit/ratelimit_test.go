package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("boom")
}

func newTestStore(start time.Time) (*MemoryStore, *time.Time) {
	now := start
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	return s, &now
}

func TestCheckCountsDownThenDenies(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(time.Unix(1000, 0))
	l := New(s)
	ctx := context.Background()

	const limit = 5
	for i := 0; i < limit; i++ {
		d := l.Check(ctx, "k", limit, time.Minute)
		require.True(t, d.Allowed, "hit %d should be allowed", i+1)
		require.Equal(t, limit-i-1, d.Remaining)
		require.Equal(t, limit, d.Limit)
	}

	d := l.Check(ctx, "k", limit, time.Minute)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
}

func TestKeysAreIndependent(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(time.Unix(1000, 0))
	l := New(s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, l.Check(ctx, "login:1.2.3.4:a@x", 3, time.Minute).Allowed)
	}
	require.False(t, l.Check(ctx, "login:1.2.3.4:a@x", 3, time.Minute).Allowed)

	// Exhausting one key never affects another.
	d := l.Check(ctx, "login:1.2.3.4:b@x", 3, time.Minute)
	require.True(t, d.Allowed)
	require.Equal(t, 2, d.Remaining)
}

func TestWindowRollsOver(t *testing.T) {
	t.Parallel()

	s, now := newTestStore(time.Unix(1000, 0))
	l := New(s)
	ctx := context.Background()

	require.True(t, l.Check(ctx, "k", 1, time.Minute).Allowed)
	require.False(t, l.Check(ctx, "k", 1, time.Minute).Allowed)

	*now = now.Add(time.Minute) // exactly at resetAt starts a fresh window

	d := l.Check(ctx, "k", 1, time.Minute)
	require.True(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.Equal(t, now.Add(time.Minute), d.ResetAt)
}

func TestLoginScenarioTenPerFiveMinutes(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	s, _ := newTestStore(start)
	l := New(s)
	ctx := context.Background()

	key := Key("login", "192.168.1.1", "admin@acme.test")
	for i := 0; i < 10; i++ {
		d := l.Check(ctx, key, 10, 5*time.Minute)
		require.True(t, d.Allowed)
		require.Equal(t, 9-i, d.Remaining)
	}

	d := l.Check(ctx, key, 10, 5*time.Minute)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.True(t, d.ResetAt.After(start))
}

func TestFailClosedByDefault(t *testing.T) {
	t.Parallel()

	d := New(failingStore{}).Check(context.Background(), "k", 10, time.Minute)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
}

func TestFailOpenWhenConfigured(t *testing.T) {
	t.Parallel()

	d := New(failingStore{}, FailOpen()).Check(context.Background(), "k", 10, time.Minute)
	require.True(t, d.Allowed)
}

func TestConcurrentHitsAreAtomic(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	const goroutines = 32
	const hitsEach = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < hitsEach; i++ {
				_, _, err := s.Hit(ctx, "k", time.Hour)
				require.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	count, _, err := s.Hit(ctx, "k", time.Hour)
	require.NoError(t, err)
	require.Equal(t, goroutines*hitsEach+1, count)
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	t.Parallel()

	s, now := newTestStore(time.Unix(1000, 0))
	ctx := context.Background()

	_, _, err := s.Hit(ctx, "short", time.Second)
	require.NoError(t, err)
	_, _, err = s.Hit(ctx, "long", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	*now = now.Add(2 * time.Second)
	require.Equal(t, 1, s.Sweep())
	require.Equal(t, 1, s.Len())
}

func TestKeyBuildsCompositeWithUnknownSentinel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "login:1.2.3.4:jo@acme.test", Key("login", "1.2.3.4", "jo@acme.test"))
	require.Equal(t, "login:unknown:jo@acme.test", Key("login", "", "jo@acme.test"))
}
