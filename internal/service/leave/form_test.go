package leave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/apitest"
)

func newTestForm(t *testing.T, srv *apitest.Server) *Form {
	t.Helper()
	svc := newTestService(t, srv, &fakeConfirmer{answer: true})
	return NewForm(svc, leave.Request{
		EmployeeID:    "emp-1",
		CategoryType:  leave.CategoryPlanned,
		FinancialType: leave.FinancialPaid,
	})
}

func TestFormCalculatesDurationAfterDateEdit(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	form := newTestForm(t, srv)
	form.SetDateRange("2026-03-02", "2026-03-06", false)

	require.Eventually(t, func() bool {
		return form.Draft().LeaveDuration == 5.0
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return form.CanSubmit()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, form.BalanceMessage())
}

func TestFormBlocksOnInsufficientBalance(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.AvailabilityFn = func(employeeID string, duration float64) leave.Availability {
		return leave.Availability{Available: false, Message: "You need 2 more paid leave days for this request"}
	}

	form := newTestForm(t, srv)
	form.SetDateRange("2026-03-02", "2026-03-06", false)

	require.Eventually(t, func() bool {
		return form.BalanceMessage() != ""
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "You need 2 more paid leave days for this request", form.BalanceMessage())
	assert.False(t, form.CanSubmit())
}

func TestFormUnpaidClearsInsufficiency(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.AvailabilityFn = func(employeeID string, duration float64) leave.Availability {
		return leave.Availability{Available: false, Message: "You need 2 more paid leave days for this request"}
	}

	form := newTestForm(t, srv)
	form.SetDateRange("2026-03-02", "2026-03-06", false)
	require.Eventually(t, func() bool {
		return form.BalanceMessage() != ""
	}, 2*time.Second, 10*time.Millisecond)

	availabilityHits := srv.Hits("GET /leave/availability")
	form.SetFinancialType(leave.FinancialUnpaid)
	assert.Empty(t, form.BalanceMessage(), "UNPAID has no balance constraint")
	assert.True(t, form.CanSubmit())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, availabilityHits, srv.Hits("GET /leave/availability"),
		"switching to UNPAID must not trigger a check")

	// Switching back re-checks even though the duration did not change.
	form.SetFinancialType(leave.FinancialPaid)
	require.Eventually(t, func() bool {
		return form.BalanceMessage() != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, form.CanSubmit())
	assert.Greater(t, srv.Hits("GET /leave/availability"), availabilityHits)
}

func TestFormUnpaidSwitchDiscardsInFlightCheck(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	release := make(chan struct{})
	srv.AvailabilityFn = func(employeeID string, duration float64) leave.Availability {
		<-release
		return leave.Availability{Available: false, Message: "You need 2 more paid leave days for this request"}
	}

	form := newTestForm(t, srv)
	form.SetDateRange("2026-03-02", "2026-03-06", false)

	require.Eventually(t, func() bool {
		return form.Checking()
	}, 2*time.Second, 10*time.Millisecond)

	// The user switches to UNPAID while the check is still in flight; its
	// verdict must not land afterwards and resurrect the cleared error.
	form.SetFinancialType(leave.FinancialUnpaid)
	close(release)

	require.Eventually(t, func() bool {
		return !form.Checking()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, form.BalanceMessage())
	assert.True(t, form.CanSubmit())
	assert.Equal(t, leave.FinancialUnpaid, form.Draft().FinancialType)
}

func TestFormSubmitAdoptsSavedRequest(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	form := newTestForm(t, srv)
	form.SetCategory(leave.CategoryCasual)
	form.SetContext("moving day")
	form.SetDateRange("2026-03-02", "2026-03-03", false)

	require.Eventually(t, func() bool {
		return form.CanSubmit()
	}, 2*time.Second, 10*time.Millisecond)

	saved, err := form.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "leave-1", saved.LeaveID)
	assert.Equal(t, leave.StatusPending, saved.Status)
	assert.Equal(t, leave.CategoryCasual, saved.CategoryType)
	assert.Equal(t, "leave-1", form.Draft().LeaveID, "the form continues editing the saved request")
}

func TestFormKeepsDurationOnCalculationFailure(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	form := newTestForm(t, srv)
	form.SetDateRange("2026-03-02", "2026-03-06", false)
	require.Eventually(t, func() bool {
		return form.Draft().LeaveDuration == 5.0
	}, 2*time.Second, 10*time.Millisecond)

	// An inverted edit fails validation; the previous duration survives.
	form.SetDateRange("2026-03-06", "2026-03-02", false)
	require.Eventually(t, func() bool {
		return form.LastError() != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 5.0, form.Draft().LeaveDuration)
}
