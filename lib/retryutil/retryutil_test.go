package retryutil

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSucceedsWithinBudget(t *testing.T) {
	calls := 0
	budget := Budget{Attempts: 3}
	err := budget.Do(context.Background(), "flaky", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, calls)
}

func TestExhaustionCountsAttempts(t *testing.T) {
	calls := 0
	budget := Budget{Attempts: 3}
	err := budget.Do(context.Background(), "load search page", func(ctx context.Context) error {
		calls++
		return errors.New("timed out")
	}, nil)
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.True(t, strings.Contains(err.Error(), "load search page"))
	require.True(t, strings.Contains(err.Error(), "3 attempts"))
}

func TestRecoveryRunsBetweenAttempts(t *testing.T) {
	calls := 0
	recoveries := 0
	budget := Budget{Attempts: 4}
	err := budget.Do(context.Background(), "wait", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("stale page")
		}
		return nil
	}, func(ctx context.Context) error {
		recoveries++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 3, calls)
	require.Equal(t, 2, recoveries)
}

func TestRecoveryFailureAborts(t *testing.T) {
	calls := 0
	budget := Budget{Attempts: 5}
	err := budget.Do(context.Background(), "wait", func(ctx context.Context) error {
		calls++
		return errors.New("stale page")
	}, func(ctx context.Context) error {
		return errors.New("browser gone")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.True(t, strings.Contains(err.Error(), "browser gone"))
}

func TestPermanentStopsRetrying(t *testing.T) {
	calls := 0
	terminal := errors.New("challenge rejected")
	budget := Budget{Attempts: 5}
	err := budget.Do(context.Background(), "classify", func(ctx context.Context) error {
		calls++
		return Permanent(terminal)
	}, nil)
	require.ErrorIs(t, err, terminal)
	require.Equal(t, 1, calls)
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	budget := Budget{Attempts: 5, Interval: time.Millisecond}
	err := budget.Do(ctx, "wait", func(ctx context.Context) error {
		return errors.New("never seen")
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
