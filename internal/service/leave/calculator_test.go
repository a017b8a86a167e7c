package leave

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/api"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/apitest"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, srv *apitest.Server) *api.Client {
	t.Helper()
	st, err := storage.NewFileStorage(filepath.Join(t.TempDir(), "kv.json"))
	require.NoError(t, err)
	return api.New(srv.URL(), 5*time.Second, api.NewStorageTokenSource(st), discardLogger())
}

// One working week, Monday to Friday.
var fullWeek = leave.DurationQuery{FromDate: "2026-03-02", ToDate: "2026-03-06"}

func TestCalculateImmediate(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	calc := NewCalculator(newTestClient(t, srv), 10*time.Millisecond, discardLogger())
	defer calc.Stop()

	duration, err := calc.Calculate(context.Background(), fullWeek)
	require.NoError(t, err)
	assert.Equal(t, 5.0, duration)

	halfDays, err := calc.Calculate(context.Background(), leave.DurationQuery{
		FromDate: "2026-03-02", ToDate: "2026-03-06", PartialDay: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2.5, halfDays)
}

func TestCalculateMonotonicOverWideningRange(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	calc := NewCalculator(newTestClient(t, srv), 10*time.Millisecond, discardLogger())
	defer calc.Stop()

	// Widening only the end date (full days) must never shrink the
	// duration, even across weekends where it stays flat.
	ends := []string{
		"2026-03-02", "2026-03-03", "2026-03-06",
		"2026-03-08", "2026-03-10", "2026-03-13",
	}
	prev := 0.0
	for _, end := range ends {
		duration, err := calc.Calculate(context.Background(), leave.DurationQuery{
			FromDate: "2026-03-02",
			ToDate:   end,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, duration, prev, "widening toDate to %s shrank the duration", end)
		prev = duration
	}
	assert.Equal(t, 10.0, prev)
}

func TestCalculateWrapsBackendFailure(t *testing.T) {
	srv := apitest.NewServer()
	client := newTestClient(t, srv)
	srv.Close()

	calc := NewCalculator(client, 10*time.Millisecond, discardLogger())
	defer calc.Stop()

	_, err := calc.Calculate(context.Background(), fullWeek)
	assert.ErrorIs(t, err, leave.ErrCalculationFailed)
}

func TestScheduleCoalescesRapidEdits(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	calc := NewCalculator(newTestClient(t, srv), 60*time.Millisecond, discardLogger())
	defer calc.Stop()

	results := make(chan float64, 8)
	queries := []leave.DurationQuery{
		{FromDate: "2026-03-02", ToDate: "2026-03-02"},
		{FromDate: "2026-03-02", ToDate: "2026-03-03"},
		{FromDate: "2026-03-02", ToDate: "2026-03-04"},
		{FromDate: "2026-03-02", ToDate: "2026-03-06"},
	}
	for _, q := range queries {
		calc.Schedule(q, func(d float64) { results <- d }, nil)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case d := <-results:
		assert.Equal(t, 5.0, d, "only the last edit's range is calculated")
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, srv.Hits("POST /leave/calculate-duration"), "rapid edits collapse into one request")
	assert.Empty(t, results)
}

func TestScheduleSkipsIncompleteQuery(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	calc := NewCalculator(newTestClient(t, srv), 10*time.Millisecond, discardLogger())
	defer calc.Stop()

	calc.Schedule(leave.DurationQuery{FromDate: "2026-03-02"}, func(float64) {
		t.Error("incomplete query must not calculate")
	}, nil)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, srv.Hits("POST /leave/calculate-duration"))
}

func TestSupersededResultIsDiscarded(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	slowFrom, _ := time.Parse("2006-01-02", "2026-03-02")
	srv.DurationFn = func(from, to time.Time, partialDay bool) float64 {
		if from.Equal(slowFrom) {
			time.Sleep(150 * time.Millisecond)
			return 1
		}
		return 5
	}

	calc := NewCalculator(newTestClient(t, srv), 10*time.Millisecond, discardLogger())
	defer calc.Stop()

	var stale atomic.Bool
	calc.Schedule(leave.DurationQuery{FromDate: "2026-03-02", ToDate: "2026-03-02"},
		func(float64) { stale.Store(true) }, nil)

	// Let the debounced request get in flight, then issue a newer one.
	time.Sleep(50 * time.Millisecond)
	duration, err := calc.Calculate(context.Background(), leave.DurationQuery{
		FromDate: "2026-03-09", ToDate: "2026-03-13",
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, duration)

	time.Sleep(300 * time.Millisecond)
	assert.False(t, stale.Load(), "the older in-flight response must never be delivered")
}

func TestScheduleReportsErrorWithoutResult(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	calc := NewCalculator(newTestClient(t, srv), 10*time.Millisecond, discardLogger())
	defer calc.Stop()

	errs := make(chan error, 1)
	calc.Schedule(leave.DurationQuery{FromDate: "2026-03-06", ToDate: "2026-03-02"},
		func(float64) { t.Error("inverted range must not produce a duration") },
		func(err error) { errs <- err })

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no error delivered")
	}
}
