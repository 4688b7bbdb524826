package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	fact string
	err  error
}

type fakeFetcher struct {
	responses []response
	calls     int
	times     []time.Time
}

func (f *fakeFetcher) Fetch(context.Context) (string, error) {
	f.times = append(f.times, time.Now())
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		return f.responses[len(f.responses)-1].fact, f.responses[len(f.responses)-1].err
	}
	return f.responses[idx].fact, f.responses[idx].err
}

func ok(fact string) response { return response{fact: fact} }

func TestFetchFactsZero(t *testing.T) {
	f := &fakeFetcher{responses: []response{ok("never")}}
	facts, err := New(f, 0).FetchFacts(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, facts)
	assert.Equal(t, 0, f.calls)
}

func TestFetchFactsInOrder(t *testing.T) {
	f := &fakeFetcher{responses: []response{ok("First cat fact"), ok("Second cat fact"), ok("Third cat fact")}}
	facts, err := New(f, 0).FetchFacts(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"First cat fact", "Second cat fact", "Third cat fact"}, facts)
	assert.Equal(t, 3, f.calls)
}

func TestFetchFactsSkipsFailedIterations(t *testing.T) {
	f := &fakeFetcher{responses: []response{
		ok("one"),
		{err: oops.With("status_code", 404).Wrap(apperrors.ErrUnexpectedStatus)},
		{err: oops.Wrap(apperrors.ErrMissingFact)},
		ok("four"),
	}}
	facts, err := New(f, 0).FetchFacts(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "four"}, facts)
	assert.Equal(t, 4, f.calls)
}

func TestFetchFactsCallsCountTimesRegardlessOfOutcome(t *testing.T) {
	for count := 0; count <= 5; count++ {
		f := &fakeFetcher{responses: []response{{err: apperrors.ErrUnexpectedStatus}}}
		facts, err := New(f, 0).FetchFacts(context.Background(), count)

		require.NoError(t, err)
		assert.Empty(t, facts)
		assert.Equal(t, count, f.calls)
	}
}

func TestFetchFactsPropagatesTransportError(t *testing.T) {
	boom := errors.New("API Error")
	f := &fakeFetcher{responses: []response{ok("one"), {err: boom}, ok("three")}}
	facts, err := New(f, 0).FetchFacts(context.Background(), 3)

	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []string{"one"}, facts)
	assert.Equal(t, 2, f.calls)
}

func TestFetchFactsDelayBetweenRequests(t *testing.T) {
	delay := 20 * time.Millisecond
	f := &fakeFetcher{responses: []response{ok("a"), ok("b"), ok("c")}}

	_, err := New(f, delay).FetchFacts(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, f.times, 3)
	assert.GreaterOrEqual(t, f.times[1].Sub(f.times[0]), delay)
	assert.GreaterOrEqual(t, f.times[2].Sub(f.times[1]), delay)
}

func TestFetchFactsSleepsOnlyBetweenRequests(t *testing.T) {
	tcases := []struct {
		name      string
		count     int
		responses []response
		sleeps    int
	}{
		{name: "zero", count: 0, responses: []response{ok("a")}, sleeps: 0},
		{name: "single", count: 1, responses: []response{ok("a")}, sleeps: 0},
		{name: "three", count: 3, responses: []response{ok("a")}, sleeps: 2},
		{name: "last fails", count: 2, responses: []response{ok("a"), {err: apperrors.ErrUnexpectedStatus}}, sleeps: 1},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(&fakeFetcher{responses: tc.responses}, 100*time.Millisecond)
			sleeps := 0
			svc.sleep = func(_ context.Context, d time.Duration) error {
				assert.Equal(t, 100*time.Millisecond, d)
				sleeps++
				return nil
			}

			_, err := svc.FetchFacts(context.Background(), tc.count)
			require.NoError(t, err)
			assert.Equal(t, tc.sleeps, sleeps)
		})
	}
}

func TestFetchFactsCanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &fakeFetcher{responses: []response{ok("a")}}
	svc := New(f, time.Hour)

	var got []string
	var gotErr error
	for fact, err := range svc.Stream(ctx, 2) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, fact)
		cancel()
	}

	assert.Equal(t, []string{"a"}, got)
	assert.True(t, errors.Is(gotErr, context.Canceled))
	assert.Equal(t, 1, f.calls)
}

func TestStreamStopsWhenConsumerBreaks(t *testing.T) {
	f := &fakeFetcher{responses: []response{ok("a"), ok("b"), ok("c")}}
	for range New(f, 0).Stream(context.Background(), 3) {
		break
	}
	assert.Equal(t, 1, f.calls)
}
