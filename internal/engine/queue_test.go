package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordgraph/internal/ir"
)

func TestOpQueue_FIFO(t *testing.T) {
	q := newOpQueue()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		require.True(t, q.Enqueue(op{fn: func(*Engine) error {
			order = append(order, i)
			return nil
		}}))
	}
	assert.Equal(t, 3, q.Len())

	for {
		o, ok := q.TryDequeue()
		if !ok {
			break
		}
		require.NoError(t, o.fn(nil))
	}
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Zero(t, q.Len())
}

func TestOpQueue_ClosedRejects(t *testing.T) {
	q := newOpQueue()
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(op{}))
	_, open := <-q.Wait()
	assert.False(t, open, "signal channel is closed")
}

func TestEngine_DoSerializesWrites(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- e.Run(ctx) }()

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.Do(ctx, func(e *Engine) error {
				_, err := e.Create("Team", nil)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var n int
	require.NoError(t, e.Do(ctx, func(e *Engine) error {
		res, err := e.Query("Team", countOnly())
		if err != nil {
			return err
		}
		n = *res.Count
		return nil
	}))
	assert.Equal(t, writers, n, "no key assignment was lost")

	e.Stop()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	assert.ErrorIs(t, e.Do(context.Background(), func(*Engine) error { return nil }), ErrStopped)
}

func TestEngine_DoReturnsOperationError(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	err := e.Do(ctx, func(e *Engine) error {
		return e.Delete("Team", "404")
	})
	assert.True(t, ir.IsNotFound(err))
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	runErr := make(chan error, 1)
	go func() { runErr <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-runErr:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.ErrorIs(t, e.Do(context.Background(), func(*Engine) error { return nil }), ErrStopped)
}
