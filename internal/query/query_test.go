package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachesUntilTTL(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	var calls int
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := Get(context.Background(), c, "members:3", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = Get(context.Background(), c, "members:3", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	v, err = Get(context.Background(), c, "members:3", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGetDeduplicatesConcurrentFetches(t *testing.T) {
	c := NewCache(time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "ok", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Get(context.Background(), c, "pending", fetch)
			assert.NoError(t, err)
			assert.Equal(t, "ok", v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestErrorsAreNotCached(t *testing.T) {
	c := NewCache(time.Minute)
	boom := errors.New("boom")

	_, err := Get(context.Background(), c, "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	v, err := Get(context.Background(), c, "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestInvalidateByPrefix(t *testing.T) {
	c := NewCache(time.Minute)
	ctx := context.Background()
	one := func(context.Context) (int, error) { return 1, nil }
	two := func(context.Context) (int, error) { return 2, nil }

	_, _ = Get(ctx, c, "satgas:pending:1", one)
	_, _ = Get(ctx, c, "satgas:pending:2", one)
	_, _ = Get(ctx, c, "cards:1", one)
	require.Equal(t, 3, c.Len())

	c.Invalidate("satgas:")
	assert.Equal(t, 1, c.Len())

	v, _ := Get(ctx, c, "satgas:pending:1", two)
	assert.Equal(t, 2, v)
	v, _ = Get(ctx, c, "cards:1", two)
	assert.Equal(t, 1, v)
}

func TestInvalidateDuringFetchIsNotCached(t *testing.T) {
	c := NewCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan int)
	go func() {
		v, _ := Get(context.Background(), c, "k", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		done <- v
	}()

	<-started
	c.Invalidate("k")
	close(release)
	assert.Equal(t, 1, <-done)
	assert.Zero(t, c.Len())
}

func TestGetHonoursCallerContext(t *testing.T) {
	c := NewCache(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := Get(ctx, c, "slow", func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetCancelsAbandonedFetch(t *testing.T) {
	c := NewCache(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	stopped := make(chan error, 1)

	go func() {
		<-started
		cancel()
	}()
	_, err := Get(ctx, c, "stats:7", func(fctx context.Context) (int, error) {
		close(started)
		<-fctx.Done()
		stopped <- fctx.Err()
		return 0, fctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch kept running after its only caller left")
	}

	// A later caller starts a fresh fetch.
	v, err := Get(context.Background(), c, "stats:7", func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestGetKeepsFetchForRemainingWaiters(t *testing.T) {
	c := NewCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	fetch := func(fctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return "ok", nil
		case <-fctx.Done():
			return "", fctx.Err()
		}
	}

	done := make(chan error, 1)
	go func() {
		v, err := Get(context.Background(), c, "pending", fetch)
		if err == nil && v != "ok" {
			err = errors.New("unexpected value " + v)
		}
		done <- err
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Get(ctx, c, "pending", fetch)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerations(t *testing.T) {
	g := NewGenerations()

	ctx1, t1, done1 := g.Begin(context.Background(), "members")
	assert.True(t, g.Current(t1))

	ctx2, t2, done2 := g.Begin(context.Background(), "members")
	defer done2()

	assert.False(t, g.Current(t1))
	assert.ErrorIs(t, g.Check(t1), ErrStale)
	assert.ErrorIs(t, ctx1.Err(), context.Canceled, "older fetch is cancelled")
	assert.NoError(t, ctx2.Err())
	assert.NoError(t, g.Check(t2))

	done1()
	assert.NoError(t, ctx2.Err(), "finishing a stale fetch leaves the newer one alone")

	_, other, doneOther := g.Begin(context.Background(), "cards")
	defer doneOther()
	assert.True(t, g.Current(other))
	assert.True(t, g.Current(t2))
}
