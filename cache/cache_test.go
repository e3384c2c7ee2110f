package cache

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

func TestRemember(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	producer := func(context.Context) (any, error) {
		calls.Add(1)
		return "value", nil
	}

	v, err := c.Remember(ctx, "key", 0, producer)
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	v, err = c.Remember(ctx, "key", 0, producer)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemember_ErrorsAreNotStored(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := c.Remember(ctx, "key", 0, func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	v, err := c.Remember(ctx, "key", 0, func(context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRemember_Expires(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	producer := func(context.Context) (any, error) {
		return calls.Add(1), nil
	}

	_, err := c.Remember(ctx, "key", 20*time.Millisecond, producer)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		v, err := c.Remember(ctx, "key", 20*time.Millisecond, producer)
		return err == nil && v == int32(2)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRemember_ConcurrentMissesShareProducer(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	producer := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Remember(ctx, "key", 0, producer)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestRemember_CallerCancelDoesNotFailOthers(t *testing.T) {
	c := New(time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	producer := func(ctx context.Context) (any, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return "shared", nil
	}

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Remember(first, "key", 0, producer)
		firstErr <- err
	}()
	<-started

	second := make(chan any, 1)
	go func() {
		v, err := c.Remember(context.Background(), "key", 0, producer)
		assert.NoError(t, err)
		second <- v
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, "shared", <-second)

	v, err := c.Remember(context.Background(), "key", 0, producer)
	require.NoError(t, err)
	assert.Equal(t, "shared", v)
}

func TestRemember_CancelledContext(t *testing.T) {
	c := New(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, err := c.Remember(ctx, "key", 0, func(context.Context) (any, error) {
		calls.Add(1)
		return "v", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestForget(t *testing.T) {
	c := New(0)
	ctx := context.Background()

	var calls atomic.Int32
	producer := func(context.Context) (any, error) {
		return calls.Add(1), nil
	}

	_, err := c.Remember(ctx, "key", 0, producer)
	require.NoError(t, err)

	c.Forget("key")
	c.Forget("missing")

	v, err := c.Remember(ctx, "key", 0, producer)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestRememberAs(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	got, err := RememberAs(ctx, c, "typed", 0, func(context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = c.Remember(ctx, "other", 0, func(context.Context) (any, error) {
		return 7, nil
	})
	require.NoError(t, err)

	_, err = RememberAs(ctx, c, "other", 0, func(context.Context) (string, error) {
		return "unused", nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has type int")
}
