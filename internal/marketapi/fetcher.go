package marketapi

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultRoundSleeps is the pause schedule between cascading retry rounds.
// Transient 429/5xx failures cluster, so whole-batch backoff is applied on
// top of the per-request backoff inside the client.
var DefaultRoundSleeps = []time.Duration{5 * time.Second, 15 * time.Second, 20 * time.Second}

// Fetcher drives batches of requests through the client with bounded
// concurrency. Results and failures land in caller-owned collections; the
// fetcher itself keeps no state between batches.
type Fetcher struct {
	client  *Client
	workers int

	rounds      int
	roundSleeps []time.Duration

	throttleThreshold int
	throttlePause     time.Duration
}

type FetcherOptions struct {
	Workers           int
	Rounds            int
	RoundSleeps       []time.Duration
	ThrottleThreshold int
	ThrottlePause     time.Duration
}

func NewFetcher(client *Client, opts FetcherOptions) *Fetcher {
	if opts.Workers <= 0 {
		opts.Workers = 30
	}
	if opts.Rounds <= 0 {
		opts.Rounds = 4
	}
	if opts.RoundSleeps == nil {
		opts.RoundSleeps = DefaultRoundSleeps
	}
	if opts.ThrottleThreshold <= 0 {
		opts.ThrottleThreshold = 4000
	}
	if opts.ThrottlePause <= 0 {
		opts.ThrottlePause = 10 * time.Second
	}
	return &Fetcher{
		client:            client,
		workers:           opts.Workers,
		rounds:            opts.Rounds,
		roundSleeps:       opts.RoundSleeps,
		throttleThreshold: opts.ThrottleThreshold,
		throttlePause:     opts.ThrottlePause,
	}
}

// retryRounds runs items through run up to maxRounds times, sleeping per the
// schedule between rounds, and returns whatever still failed at the end.
// Pure cascade policy: run owns all I/O.
func retryRounds[T any](ctx context.Context, items []T, maxRounds int, schedule []time.Duration, run func(context.Context, []T) []T) []T {
	failed := items
	for round := 0; round < maxRounds && len(failed) > 0; round++ {
		if round > 0 {
			idx := round - 1
			if idx >= len(schedule) {
				idx = len(schedule) - 1
			}
			select {
			case <-time.After(schedule[idx]):
			case <-ctx.Done():
				return failed
			}
		}
		failed = run(ctx, failed)
	}
	return failed
}

// fetchConcurrently fans items out over workers calls. Each worker posts its
// outcome to the coordinator, which alone touches the collect callback and the
// throttle counter, so callers never need their own locking. Returns the items
// whose calls failed.
func fetchConcurrently[T, R any](ctx context.Context, items []T, workers int, throttleEvery int, throttlePause time.Duration,
	call func(context.Context, T) (R, error), collect func(T, R)) []T {

	type outcome struct {
		item  T
		value R
		err   error
	}

	jobs := make(chan T)
	results := make(chan outcome)
	unfed := make(chan []T, 1)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				value, err := call(ctx, item)
				results <- outcome{item: item, value: value, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, item := range items {
			select {
			case jobs <- item:
			case <-ctx.Done():
				// Cancellation must not lose items: everything never
				// handed to a worker counts as failed.
				unfed <- items[i:]
				return
			}
		}
		unfed <- nil
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var failed []T
	collected := 0
	for out := range results {
		if out.err != nil {
			failed = append(failed, out.item)
			continue
		}
		collect(out.item, out.value)
		collected++
		if throttleEvery > 0 && collected%throttleEvery == 0 {
			// Soft self-throttle: the unbuffered results channel
			// back-pressures the in-flight workers while we sleep.
			log.Printf("fetcher: %d results accumulated, pausing %s", collected, throttlePause)
			time.Sleep(throttlePause)
		}
	}
	return append(failed, <-unfed...)
}

// CollectSearchItems executes page requests and hands every returned item set
// to collect. Pages that still fail after all cascade rounds are returned so
// the caller can log and defer them to the next run.
func (f *Fetcher) CollectSearchItems(ctx context.Context, pages []PageRequest, collect func(PageRequest, []SearchItem)) []PageRequest {
	run := func(ctx context.Context, batch []PageRequest) []PageRequest {
		return fetchConcurrently(ctx, batch, f.workers, f.throttleThreshold, f.throttlePause,
			f.client.SearchPage, collect)
	}
	failed := retryRounds(ctx, pages, f.rounds, f.roundSleeps, run)
	if len(failed) > 0 {
		log.Printf("fetcher: %d page requests unresolved after %d rounds, deferring to next run", len(failed), f.rounds)
	}
	return failed
}

// CollectProducts executes product detail fetches and hands each payload to
// collect. IDs that still fail after all cascade rounds are returned.
func (f *Fetcher) CollectProducts(ctx context.Context, ids []int64, collect func(*ProductPayload)) []int64 {
	run := func(ctx context.Context, batch []int64) []int64 {
		return fetchConcurrently(ctx, batch, f.workers, f.throttleThreshold, f.throttlePause,
			f.client.ProductDetails, func(_ int64, p *ProductPayload) { collect(p) })
	}
	failed := retryRounds(ctx, ids, f.rounds, f.roundSleeps, run)
	if len(failed) > 0 {
		log.Printf("fetcher: %d products unresolved after %d rounds, deferring to next run", len(failed), f.rounds)
	}
	return failed
}
