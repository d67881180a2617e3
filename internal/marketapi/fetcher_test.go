package marketapi

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryRounds_SucceedsFirstRound(t *testing.T) {
	rounds := 0
	failed := retryRounds(context.Background(), []int{1, 2, 3}, 4, []time.Duration{time.Millisecond},
		func(_ context.Context, items []int) []int {
			rounds++
			return nil
		})
	assert.Empty(t, failed)
	assert.Equal(t, 1, rounds)
}

func TestRetryRounds_CascadeShrinks(t *testing.T) {
	var attempts [][]int
	failed := retryRounds(context.Background(), []int{1, 2, 3}, 4, []time.Duration{time.Millisecond},
		func(_ context.Context, items []int) []int {
			attempts = append(attempts, items)
			// Each round resolves one more item.
			if len(items) > 1 {
				return items[1:]
			}
			return nil
		})
	assert.Empty(t, failed)
	assert.Equal(t, [][]int{{1, 2, 3}, {2, 3}, {3}}, attempts)
}

func TestRetryRounds_ExhaustedReturnsRemainder(t *testing.T) {
	rounds := 0
	failed := retryRounds(context.Background(), []int{1, 2}, 3, []time.Duration{time.Millisecond},
		func(_ context.Context, items []int) []int {
			rounds++
			return items
		})
	assert.Equal(t, []int{1, 2}, failed)
	assert.Equal(t, 3, rounds)
}

func TestRetryRounds_ScheduleClampsToLast(t *testing.T) {
	// More rounds than sleep entries must not panic; the last entry repeats.
	failed := retryRounds(context.Background(), []int{1}, 5, []time.Duration{time.Millisecond},
		func(_ context.Context, items []int) []int { return items })
	assert.Equal(t, []int{1}, failed)
}

func TestFetchConcurrently_CollectsAllResults(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var calls int64
	collected := make(map[int]int)
	failed := fetchConcurrently(context.Background(), items, 8, 0, 0,
		func(_ context.Context, item int) (int, error) {
			atomic.AddInt64(&calls, 1)
			return item * 2, nil
		},
		func(item, value int) {
			// Coordinator-only collection: no locking needed here.
			collected[item] = value
		})

	assert.Empty(t, failed)
	assert.Equal(t, int64(100), calls)
	assert.Len(t, collected, 100)
	assert.Equal(t, 14, collected[7])
}

func TestFetchConcurrently_FailuresReturned(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	errOdd := errors.New("odd")

	var succeeded []int
	failed := fetchConcurrently(context.Background(), items, 3, 0, 0,
		func(_ context.Context, item int) (int, error) {
			if item%2 == 1 {
				return 0, errOdd
			}
			return item, nil
		},
		func(item, _ int) { succeeded = append(succeeded, item) })

	assert.ElementsMatch(t, []int{1, 3, 5}, failed)
	assert.ElementsMatch(t, []int{2, 4}, succeeded)
}

func TestFetchConcurrently_CancelledUpFront(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := make([]int, 1000)
	collected := 0
	failed := fetchConcurrently(ctx, items, 2, 0, 0,
		func(_ context.Context, item int) (int, error) { return item, nil },
		func(int, int) { collected++ })

	// Every item must land in exactly one of the two collections.
	assert.Equal(t, len(items), collected+len(failed))
}

func TestFetchConcurrently_MidRunCancelKeepsAccounting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	collected := 0
	failed := fetchConcurrently(ctx, items, 1, 0, 0,
		func(_ context.Context, item int) (int, error) { return item, nil },
		func(int, int) {
			collected++
			if collected == 2 {
				cancel()
			}
		})

	assert.GreaterOrEqual(t, collected, 2)
	// Items never fed after cancellation are reported as failed, not
	// silently dropped.
	assert.Equal(t, len(items), collected+len(failed))
}
