package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPool_DefaultSize(t *testing.T) {
	require.Equal(t, defaultSize, NewPool(0).Size())
	require.Equal(t, 3, NewPool(3).Size())
}

func TestSubmit_ReturnsJobResult(t *testing.T) {
	p := NewPool(1)
	v, err := Submit(context.Background(), p, func(context.Context) (string, error) {
		return "hello", nil
	})
	require.NoError(t, err)
	require.Equal(t, "hello", v)

	boom := errors.New("boom")
	_, err = Submit(context.Background(), p, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestSubmit_SlowJobDoesNotBlockOthers(t *testing.T) {
	p := NewPool(2)
	release := make(chan struct{})

	type jobResult struct {
		val string
		err error
	}
	results := make(chan jobResult, 2)

	go func() {
		v, err := Submit(context.Background(), p, func(context.Context) (string, error) {
			<-release
			return "slow", nil
		})
		results <- jobResult{val: v, err: err}
	}()
	go func() {
		v, err := Submit(context.Background(), p, func(context.Context) (string, error) {
			return "fast", nil
		})
		results <- jobResult{val: v, err: err}
		close(release)
	}()

	var order []string
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			require.NoError(t, r.err)
			order = append(order, r.val)
		case <-time.After(2 * time.Second):
			t.Fatal("job did not complete")
		}
	}
	require.Equal(t, []string{"fast", "slow"}, order)
}

func TestSubmit_BoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Submit(context.Background(), p, func(context.Context) (struct{}, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return struct{}{}, nil
			})
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestSubmit_CancellationReachesJob(t *testing.T) {
	p := NewPool(1)
	jobCancelled := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Submit(ctx, p, func(jobCtx context.Context) (string, error) {
		<-jobCtx.Done()
		close(jobCancelled)
		return "", jobCtx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-jobCancelled:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
}

func TestSubmit_WaitForSlotRespectsContext(t *testing.T) {
	p := NewPool(1)
	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = Submit(context.Background(), p, func(context.Context) (string, error) {
			close(started)
			<-hold
			return "", nil
		})
	}()
	<-started
	defer close(hold)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Submit(ctx, p, func(context.Context) (string, error) { return "never", nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "wait for slot")
}

func TestClose_RejectsNewJobs(t *testing.T) {
	p := NewPool(1)
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	_, err := Submit(context.Background(), p, func(context.Context) (string, error) { return "x", nil })
	require.ErrorIs(t, err, ErrPoolClosed)
}
