package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNet struct {
	id        int
	destroyed bool
}

func newFakePool(t *testing.T, size int) (*Pool[*fakeNet], []*fakeNet) {
	t.Helper()
	var created []*fakeNet
	p, err := New(size, func(i int) (*fakeNet, error) {
		n := &fakeNet{id: i}
		created = append(created, n)
		return n, nil
	}, func(n *fakeNet) { n.destroyed = true })
	require.NoError(t, err)
	return p, created
}

func TestPool_AcquireRelease(t *testing.T) {
	p, _ := newFakePool(t, 2)
	defer p.Destroy()

	a, err := p.Acquire(context.Background())
	require.NoError(t, err)
	b, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	m := p.Metrics()
	assert.Equal(t, 2, m.InUse)
	assert.Equal(t, int64(2), m.TotalAcquired)

	p.Release(a)
	p.Release(b)
	m = p.Metrics()
	assert.Equal(t, 0, m.InUse)
	assert.Equal(t, int64(2), m.TotalReleased)
}

func TestPool_AcquireTimeout(t *testing.T) {
	p, _ := newFakePool(t, 1)
	defer p.Destroy()
	p.SetAcquireTimeout(10 * time.Millisecond)

	n, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(n)

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	assert.Equal(t, int64(1), p.Metrics().AcquireFailures)
}

func TestPool_AcquireHonoursContext(t *testing.T) {
	p, _ := newFakePool(t, 1)
	defer p.Destroy()
	p.SetAcquireTimeout(0)

	n, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(n)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_ConcurrentUseIsExclusive(t *testing.T) {
	p, _ := newFakePool(t, 3)
	defer p.Destroy()

	var mu sync.Mutex
	busy := make(map[int]bool)
	var wg sync.WaitGroup

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := p.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			assert.False(t, busy[n.id], "instance %d handed out twice", n.id)
			busy[n.id] = true
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			busy[n.id] = false
			mu.Unlock()
			p.Release(n)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, p.Metrics().InUse)
}

func TestPool_Destroy(t *testing.T) {
	p, created := newFakePool(t, 2)

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)

	p.Destroy()
	p.Destroy()

	destroyed := 0
	for _, n := range created {
		if n.destroyed {
			destroyed++
		}
	}
	assert.Equal(t, 1, destroyed)

	p.Release(held)
	assert.True(t, held.destroyed)

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNew_CleansUpOnFailure(t *testing.T) {
	var created []*fakeNet
	_, err := New(3, func(i int) (*fakeNet, error) {
		if i == 2 {
			return nil, errors.New("model file missing")
		}
		n := &fakeNet{id: i}
		created = append(created, n)
		return n, nil
	}, func(n *fakeNet) { n.destroyed = true })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance 2")
	for _, n := range created {
		assert.True(t, n.destroyed)
	}
}
