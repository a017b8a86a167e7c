package leave

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/leave"
)

// Form is the editing model behind the apply/update page. It wires the
// debounced calculator to the availability checker so that availability is
// never judged against a duration older than the latest calculation.
type Form struct {
	svc *Service

	mu           sync.Mutex
	draft        leave.Request
	availability *leave.Availability
	balanceMsg   string
	lastErr      error
	checking     bool

	availSeq atomic.Uint64
}

// NewForm starts from a draft: empty for a new request, or a copy of an
// existing PENDING request for an update.
func NewForm(svc *Service, draft leave.Request) *Form {
	return &Form{svc: svc, draft: draft}
}

// SetDateRange records the edited range and schedules a debounced
// recalculation. When the result lands it triggers an availability check
// for PAID drafts.
func (f *Form) SetDateRange(fromDate, toDate string, partialDay bool) {
	f.mu.Lock()
	f.draft.FromDate = fromDate
	f.draft.ToDate = toDate
	f.draft.PartialDay = partialDay
	query := leave.DurationQuery{FromDate: fromDate, ToDate: toDate, PartialDay: partialDay}
	f.mu.Unlock()

	f.svc.ScheduleCalculation(query, f.onDuration, f.onCalculationError)
}

// SetFinancialType switches PAID/UNPAID. UNPAID has no balance constraint,
// so switching to it clears any insufficiency error; switching back to PAID
// re-triggers the check even if the duration is unchanged.
func (f *Form) SetFinancialType(t leave.FinancialType) {
	f.mu.Lock()
	f.draft.FinancialType = t
	duration := f.draft.LeaveDuration
	employeeID := f.draft.EmployeeID
	if t == leave.FinancialUnpaid {
		// Invalidate any in-flight check so its result cannot land after
		// the switch and resurrect a cleared insufficiency.
		f.availSeq.Add(1)
		f.availability = nil
		f.balanceMsg = ""
	}
	f.mu.Unlock()

	if t == leave.FinancialPaid && duration > 0 {
		go f.checkAvailability(employeeID, duration)
	}
}

// SetCategory records the leave category.
func (f *Form) SetCategory(c leave.CategoryType) {
	f.mu.Lock()
	f.draft.CategoryType = c
	f.mu.Unlock()
}

// SetContext records the free-text reason.
func (f *Form) SetContext(text string) {
	f.mu.Lock()
	f.draft.Context = text
	f.mu.Unlock()
}

// CanSubmit reports whether the local gates pass: a positive duration and,
// for PAID, a confirmed available balance.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draft.LeaveDuration <= 0 {
		return false
	}
	if f.draft.FinancialType == leave.FinancialPaid {
		return f.availability != nil && f.availability.Available
	}
	return true
}

// Checking reports whether an availability check is in flight.
func (f *Form) Checking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checking
}

// BalanceMessage returns the backend's shortfall message verbatim, or ""
// when no insufficiency is known.
func (f *Form) BalanceMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceMsg
}

// LastError returns the most recent calculation/check failure, if any.
func (f *Form) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Draft returns a copy of the current draft.
func (f *Form) Draft() leave.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Submit hands the draft to the service, which re-validates, recalculates
// and re-checks before any save call.
func (f *Form) Submit(ctx context.Context, attachment *leave.Attachment) (leave.Request, error) {
	saved, err := f.svc.Submit(ctx, f.Draft(), attachment)
	if err != nil {
		return saved, err
	}
	f.mu.Lock()
	f.draft = saved
	f.mu.Unlock()
	return saved, nil
}

func (f *Form) onDuration(duration float64) {
	f.mu.Lock()
	f.draft.LeaveDuration = duration
	f.lastErr = nil
	paid := f.draft.FinancialType == leave.FinancialPaid
	employeeID := f.draft.EmployeeID
	f.mu.Unlock()

	if paid {
		f.checkAvailability(employeeID, duration)
	}
}

func (f *Form) onCalculationError(err error) {
	// Keep the previous duration; a transient failure must not wipe a valid
	// value.
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
}

func (f *Form) checkAvailability(employeeID string, duration float64) {
	seq := f.availSeq.Add(1)

	f.mu.Lock()
	f.checking = true
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	availability, err := f.svc.CheckAvailability(ctx, employeeID, duration)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.checking = false

	if f.availSeq.Load() != seq {
		return
	}
	// The draft may have left PAID while the check was in flight; its
	// verdict no longer applies.
	if f.draft.FinancialType != leave.FinancialPaid {
		return
	}
	if err != nil {
		f.lastErr = err
		return
	}

	f.availability = &availability
	if availability.Available {
		f.balanceMsg = ""
	} else {
		f.balanceMsg = availability.Message
	}
}
