package service

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	apperrors "github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Fetcher retrieves a single fact
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Service fetches batches of facts one request at a time
type Service struct {
	fetcher Fetcher
	delay   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a new fact service. delay is the pause between two requests.
func New(fetcher Fetcher, delay time.Duration) *Service {
	return &Service{
		fetcher: fetcher,
		delay:   delay,
		sleep:   sleepContext,
	}
}

// FetchFacts performs count sequential requests and returns the facts that
// came back. On a transport or decode failure it returns what was gathered
// before the failure together with the error.
func (s *Service) FetchFacts(ctx context.Context, count int) ([]string, error) {
	facts := make([]string, 0, max(count, 0))
	for fact, err := range s.Stream(ctx, count) {
		if err != nil {
			return facts, err
		}
		facts = append(facts, fact)
	}
	slog.Info("Fetched facts", "requested", count, "returned", len(facts))
	return facts, nil
}

// Stream yields facts as they are fetched. A failing request ends the
// sequence with a single non-nil error.
func (s *Service) Stream(ctx context.Context, count int) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for i := 0; i < count; i++ {
			if i > 0 {
				if err := s.sleep(ctx, s.delay); err != nil {
					yield("", err)
					return
				}
			}

			slog.Debug("Requesting fact", "attempt", i+1, "count", count)
			fact, err := s.fetcher.Fetch(ctx)
			switch {
			case err == nil:
				slog.Debug("Received fact", "attempt", i+1, "fact", lo.Ellipsis(fact, 50))
				if !yield(fact, nil) {
					return
				}
			case errors.Is(err, apperrors.ErrUnexpectedStatus), errors.Is(err, apperrors.ErrMissingFact):
				slog.Warn("Skipping fact", "attempt", i+1, "error", err)
			default:
				yield("", oops.With("attempt", i+1, "count", count).Wrap(err))
				return
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
