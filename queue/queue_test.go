package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gate is an operation that blocks until released and records when it started.
type gate struct {
	started chan int
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan int, 64), release: make(chan struct{})}
}

func (g *gate) op(id int) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		g.started <- id
		select {
		case <-g.release:
			return id, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func drainStarted(g *gate) []int {
	var ids []int
	for {
		select {
		case id := <-g.started:
			ids = append(ids, id)
		case <-time.After(50 * time.Millisecond):
			return ids
		}
	}
}

func TestSubmitReturnsValue(t *testing.T) {
	q := New()
	got, err := Submit(context.Background(), q, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestConcurrencyBoundAndFIFOAdmission(t *testing.T) {
	q := New(WithMaxConcurrent(2))
	g := newGate()

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			v, err := Submit(context.Background(), q, g.op(id))
			assert.NoError(t, err)
			results[id] = v
		}(i)
		// serialise arrival so FIFO order is observable
		require.Eventually(t, func() bool { return q.Stats().Submitted == int64(i+1) }, time.Second, time.Millisecond)
	}

	first := drainStarted(g)
	assert.ElementsMatch(t, []int{0, 1}, first)
	assert.Equal(t, 2, q.Stats().Running)
	assert.Equal(t, 3, q.Stats().Pending)

	// freeing one slot admits exactly the next waiter
	g.release <- struct{}{}
	assert.Equal(t, []int{2}, drainStarted(g))

	close(g.release)
	wg.Wait()
	assert.ElementsMatch(t, []int{3, 4}, drainStarted(g))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, results)

	require.Eventually(t, func() bool { return q.Stats().Running == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(5), q.Stats().Succeeded)
}

func TestSingleSlotStartsInArrivalOrder(t *testing.T) {
	q := New(WithMaxConcurrent(1))
	g := newGate()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, _ = Submit(context.Background(), q, g.op(id))
		}(i)
		require.Eventually(t, func() bool { return q.Stats().Submitted == int64(i+1) }, time.Second, time.Millisecond)
	}

	for want := 0; want < 4; want++ {
		select {
		case got := <-g.started:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("task %d never started", want)
		}
		g.release <- struct{}{}
	}
	wg.Wait()
}

func TestFailureDoesNotStallQueue(t *testing.T) {
	q := New(WithMaxConcurrent(1))
	boom := errors.New("boom")

	_, err := Submit(context.Background(), q, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	_, err = Submit(context.Background(), q, func(context.Context) (int, error) { panic("kaput") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaput")

	got, err := Submit(context.Background(), q, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	stats := q.Stats()
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(1), stats.Succeeded)
}

func TestNoRetries(t *testing.T) {
	q := New()
	var calls atomic.Int32
	_, err := Submit(context.Background(), q, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("fail")
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCancelledWaiterIsWithdrawn(t *testing.T) {
	q := New(WithMaxConcurrent(1))
	g := newGate()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Submit(context.Background(), q, g.op(1))
	}()
	<-g.started

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	var ran atomic.Bool
	go func() {
		_, err := Submit(ctx, q, func(context.Context) (int, error) {
			ran.Store(true)
			return 0, nil
		})
		errCh <- err
	}()
	require.Eventually(t, func() bool { return q.Stats().Pending == 1 }, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, 0, q.Stats().Pending)

	close(g.release)
	<-done
	assert.False(t, ran.Load())
	assert.Equal(t, int64(1), q.Stats().Abandoned)
}

func TestBacklogBound(t *testing.T) {
	q := New(WithMaxConcurrent(1), WithMaxPending(1))
	g := newGate()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, _ = Submit(context.Background(), q, g.op(id))
		}(i)
		require.Eventually(t, func() bool { return q.Stats().Submitted == int64(i+1) }, time.Second, time.Millisecond)
		if i == 0 {
			<-g.started
		}
	}
	require.Equal(t, 1, q.Stats().Pending)

	_, err := Submit(context.Background(), q, g.op(9))
	require.ErrorIs(t, err, ErrQueueFull)

	close(g.release)
	wg.Wait()
}

func TestTaskTimeout(t *testing.T) {
	q := New(WithTaskTimeout(10 * time.Millisecond))
	_, err := Submit(context.Background(), q, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilOp(t *testing.T) {
	q := New()
	_, err := q.Enqueue(context.Background(), nil)
	require.ErrorIs(t, err, ErrNilOp)
}

func TestAlreadyCancelledContext(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Submit(ctx, q, func(context.Context) (int, error) { return 1, nil })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), q.Stats().Submitted)
}
