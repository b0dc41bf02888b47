package diabicus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/njchilds90/diabicus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepy waits for d or until its context ends.
func sleepy(d time.Duration) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		select {
		case <-time.After(d):
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// ============================================================
// Runner
// ============================================================

func TestRun_ReturnsResult(t *testing.T) {
	got, err := diabicus.Run(context.Background(), diabicus.NewRunner(time.Second), sleepy(0))
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestRun_Timeout(t *testing.T) {
	start := time.Now()
	_, err := diabicus.Run(context.Background(), diabicus.NewRunner(20*time.Millisecond), sleepy(time.Minute))
	assert.ErrorIs(t, err, diabicus.ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_ErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("boom")
	_, err := diabicus.Run(context.Background(), diabicus.NewRunner(time.Second), func(context.Context) (int, error) {
		return 0, boom
	})
	assert.Same(t, boom, err)
}

func TestRun_PanicPropagates(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		_, _ = diabicus.Run(context.Background(), diabicus.NewRunner(time.Second), func(context.Context) (int, error) {
			panic("boom")
		})
	})
}

func TestRun_ReusableAfterTimeout(t *testing.T) {
	r := diabicus.NewRunner(50 * time.Millisecond)
	_, err := diabicus.Run(context.Background(), r, sleepy(time.Minute))
	require.ErrorIs(t, err, diabicus.ErrTimeout)

	got, err := diabicus.Run(context.Background(), r, func(ctx context.Context) (int, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			return 0, errors.New("no deadline")
		}
		if time.Until(deadline) <= 0 {
			return 0, errors.New("stale deadline")
		}
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestRun_ParentCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := diabicus.Run(ctx, diabicus.NewRunner(time.Second), sleepy(time.Minute))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, diabicus.ErrTimeout)
}

func TestNewRunner_Default(t *testing.T) {
	assert.Equal(t, diabicus.DefaultCaseTimeout, diabicus.NewRunner(0).Limit())
	assert.Equal(t, diabicus.DefaultCaseTimeout, diabicus.Runner{}.Limit())
	assert.Equal(t, time.Second*3, diabicus.NewRunner(diabicus.DefaultCheckTimeout).Limit())
}
