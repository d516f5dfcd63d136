package locker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSerializesSameKey(t *testing.T) {
	reg := NewRegistry(2 * time.Second)

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := reg.Acquire(context.Background(), 42)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, reg.Len())
}

func TestAcquireDifferentKeysDoNotBlock(t *testing.T) {
	reg := NewRegistry(50 * time.Millisecond)

	releaseA, err := reg.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := reg.Acquire(context.Background(), 2)
	require.NoError(t, err)
	releaseB()
}

func TestAcquireTimesOut(t *testing.T) {
	reg := NewRegistry(20 * time.Millisecond)

	release, err := reg.Acquire(context.Background(), 7)
	require.NoError(t, err)

	_, err = reg.Acquire(context.Background(), 7)
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	assert.Equal(t, 0, reg.Len())
}

func TestAcquireHonoursCallerContext(t *testing.T) {
	reg := NewRegistry(time.Second)

	release, err := reg.Acquire(context.Background(), 3)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = reg.Acquire(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReleaseIsIdempotent(t *testing.T) {
	reg := NewRegistry(time.Second)

	release, err := reg.Acquire(context.Background(), 9)
	require.NoError(t, err)
	release()
	release()

	release, err = reg.Acquire(context.Background(), 9)
	require.NoError(t, err)
	release()
}
