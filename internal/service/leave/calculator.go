package leave

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/api"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/debounce"
)

// Calculator asks the backend for the working-day count of a date range.
// Recalculation is debounced behind a quiet period so date edits do not
// produce a request per keystroke, and every calculation carries a sequence
// number: a response that is no longer the latest issued is discarded
// instead of overwriting a fresher result.
type Calculator struct {
	api      *api.Client
	debounce *debounce.Debouncer
	logger   *slog.Logger
	timeout  time.Duration

	seq atomic.Uint64
}

func NewCalculator(client *api.Client, quiet time.Duration, logger *slog.Logger) *Calculator {
	return &Calculator{
		api:      client,
		debounce: debounce.New(quiet),
		logger:   logger,
		timeout:  15 * time.Second,
	}
}

// Schedule queues a recalculation for after the quiet period. Incomplete
// queries are ignored; a newer Schedule or Calculate supersedes the pending
// one.
func (c *Calculator) Schedule(q leave.DurationQuery, onResult func(float64), onError func(error)) {
	if !q.Complete() {
		return
	}

	c.debounce.Trigger(func() {
		seq := c.seq.Add(1)

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		duration, err := c.calculate(ctx, q)
		if c.seq.Load() != seq {
			c.logger.Debug("discarding superseded duration result", "seq", seq)
			return
		}
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onResult != nil {
			onResult(duration)
		}
	})
}

// Calculate runs immediately, bypassing the debounce. It also advances the
// sequence so that any still-pending scheduled result cannot overwrite the
// fresher value.
func (c *Calculator) Calculate(ctx context.Context, q leave.DurationQuery) (float64, error) {
	c.seq.Add(1)
	return c.calculate(ctx, q)
}

// Stop cancels any pending recalculation.
func (c *Calculator) Stop() {
	c.debounce.Stop()
}

func (c *Calculator) calculate(ctx context.Context, q leave.DurationQuery) (float64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}

	var result leave.DurationResult
	if err := c.api.Post(ctx, "/leave/calculate-duration", &q, &result); err != nil {
		// The caller keeps its previous duration; a transient failure must
		// not destroy a valid value.
		return 0, fmt.Errorf("%w: %v", leave.ErrCalculationFailed, err)
	}
	return result.LeaveDuration, nil
}
