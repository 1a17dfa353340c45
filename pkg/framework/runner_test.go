package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunnerCancelsOnFailure(t *testing.T) {
	errBoom := errors.New("boom")
	runner := NewRunner()
	runner.Go(
		NamedRun("waiter", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("failing", RunFunc(func(context.Context) error {
			return errBoom
		})),
	)
	err := runner.Wait()
	require.ErrorIs(t, err, errBoom)
	require.EqualError(t, err, "failing: boom")
}

func TestRunnerStop(t *testing.T) {
	runner := NewRunner()
	runner.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	time.AfterFunc(10*time.Millisecond, runner.Stop)
	require.NoError(t, runner.Wait())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errA, errB := errors.New("a"), errors.New("b")
	err := errs.Add(errA, nil, errB).Aggregate()
	require.ErrorIs(t, err, errB)
	require.Equal(t, "multiple errors:\na\nb", err.Error())
}

func TestRunWithContextCloser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	closed := 0
	closer := closerFunc(func() error {
		closed++
		close(done)
		return nil
	})
	time.AfterFunc(10*time.Millisecond, cancel)
	err := RunWithContextCloser(ctx, closer, func() error {
		<-done
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, closed)

	closed = 0
	err = RunWithContextCloser(context.Background(), closerFunc(func() error {
		closed++
		return nil
	}), func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, closed)
}
