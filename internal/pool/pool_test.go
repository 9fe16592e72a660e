package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_DeliversAllResults(t *testing.T) {
	tasks := make([]func(context.Context) (int, error), 10)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			return i * 2, nil
		}
	}

	got := make(map[int]int)
	for result := range Run(context.Background(), 3, tasks) {
		assert.NoError(t, result.Err)
		got[result.Index] = result.Value
	}

	assert.Len(t, got, 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, i*2, got[i])
	}
}

func TestRun_RespectsConcurrencyBound(t *testing.T) {
	const limit = 3
	var current, peak atomic.Int32

	tasks := make([]func(context.Context) (struct{}, error), 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			return struct{}{}, nil
		}
	}

	for range Run(context.Background(), limit, tasks) {
	}

	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestRun_ErrorsCarryTheirIndex(t *testing.T) {
	boom := errors.New("boom")
	tasks := []func(context.Context) (string, error){
		func(ctx context.Context) (string, error) { return "ok", nil },
		func(ctx context.Context) (string, error) { return "", boom },
	}

	var failed []int
	for result := range Run(context.Background(), 2, tasks) {
		if result.Err != nil {
			failed = append(failed, result.Index)
		}
	}
	assert.Equal(t, []int{1}, failed)
}

func TestRun_CancellationStopsNewTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int32
	tasks := make([]func(context.Context) (struct{}, error), 50)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			started.Add(1)
			cancel()
			time.Sleep(2 * time.Millisecond)
			return struct{}{}, nil
		}
	}

	count := 0
	for range Run(ctx, 2, tasks) {
		count++
	}

	// Whatever was in flight still drains, but nothing new launches once
	// the context is gone.
	assert.Less(t, int(started.Load()), len(tasks))
	assert.Equal(t, int(started.Load()), count)
}

func TestRun_LimitFloor(t *testing.T) {
	tasks := []func(context.Context) (int, error){
		func(ctx context.Context) (int, error) { return 1, nil },
	}
	results := 0
	for range Run(context.Background(), 0, tasks) {
		results++
	}
	assert.Equal(t, 1, results)
}
