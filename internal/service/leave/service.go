package leave

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/api"
)

// Service orchestrates the leave-request workflow: duration calculation,
// balance gating, submission, withdrawal and manager review. It keeps the
// last fetched request list for optimistic updates.
type Service struct {
	api     *api.Client
	calc    *Calculator
	checker *AvailabilityChecker
	confirm leave.Confirmer
	logger  *slog.Logger

	mu       sync.Mutex
	requests []leave.Request
}

func NewService(client *api.Client, calc *Calculator, checker *AvailabilityChecker, confirm leave.Confirmer, logger *slog.Logger) *Service {
	return &Service{
		api:     client,
		calc:    calc,
		checker: checker,
		confirm: confirm,
		logger:  logger,
	}
}

// ScheduleCalculation implements leave.Service.
func (s *Service) ScheduleCalculation(q leave.DurationQuery, onResult func(float64), onError func(error)) {
	s.calc.Schedule(q, onResult, onError)
}

// Calculate implements leave.Service.
func (s *Service) Calculate(ctx context.Context, q leave.DurationQuery) (float64, error) {
	return s.calc.Calculate(ctx, q)
}

// CheckAvailability implements leave.Service.
func (s *Service) CheckAvailability(ctx context.Context, employeeID string, duration float64) (leave.Availability, error) {
	return s.checker.Check(ctx, employeeID, duration)
}

// Submit implements leave.Service: create when the draft has no leaveId,
// update otherwise. The duration is always recalculated and, for PAID
// requests, availability re-checked before the save call; a stale cached
// duration is never trusted across edits or a financialType change. Local
// validation failures abort before any apply/update request is made.
func (s *Service) Submit(ctx context.Context, draft leave.Request, attachment *leave.Attachment) (leave.Request, error) {
	query := leave.DurationQuery{
		FromDate:   draft.FromDate,
		ToDate:     draft.ToDate,
		PartialDay: draft.PartialDay,
	}
	if err := query.Validate(); err != nil {
		return draft, err
	}

	duration, err := s.calc.Calculate(ctx, query)
	if err != nil {
		return draft, err
	}
	draft.LeaveDuration = duration

	if duration <= 0 {
		return draft, leave.ErrZeroDuration
	}

	if draft.FinancialType == leave.FinancialPaid {
		availability, err := s.checker.Check(ctx, draft.EmployeeID, duration)
		if err != nil {
			return draft, err
		}
		if !availability.Available {
			return draft, &leave.BalanceError{Message: availability.Message}
		}
	}

	method, path := http.MethodPost, "/leave/apply"
	if draft.LeaveID != "" {
		method, path = http.MethodPut, "/leave/update"
	}

	var fileName string
	var fileContent []byte
	if attachment != nil {
		fileName = attachment.Name
		fileContent = attachment.Content
		draft.AttachmentName = attachment.Name
	}

	var saved leave.Request
	if err := s.api.Upload(ctx, method, path, &draft, fileName, fileContent, &saved); err != nil {
		return draft, fmt.Errorf("failed to save leave request: %w", err)
	}

	s.upsert(saved)
	s.logger.Info("leave request saved", "leave_id", saved.LeaveID, "status", saved.Status)
	return saved, nil
}

// Withdraw implements leave.Service. Only PENDING requests can be
// withdrawn; anything else is rejected locally without mutating state.
func (s *Service) Withdraw(ctx context.Context, leaveID string) error {
	current, ok := s.find(leaveID)
	if !ok {
		return leave.ErrRequestNotFound
	}
	if current.Status != leave.StatusPending {
		return leave.ErrAlreadyProcessed
	}

	if !s.confirm.Confirm("Withdraw this leave request?") {
		return leave.ErrConfirmationDeclined
	}

	if err := s.api.Post(ctx, "/leave/"+leaveID+"/withdraw", nil, nil); err != nil {
		return fmt.Errorf("failed to withdraw leave request: %w", err)
	}

	current.Status = leave.StatusWithdrawn
	s.upsert(current)

	if _, err := s.MyRequests(ctx); err != nil {
		s.logger.Warn("request list refresh after withdraw failed", "error", err)
	}
	return nil
}

// Review implements leave.Service: the manager decision on a PENDING
// request. The cached list entry is updated optimistically and reconciled
// with the backend's record; on failure the optimistic update is rolled
// back so the UI never disagrees with the server.
func (s *Service) Review(ctx context.Context, leaveID string, decision leave.Status, comment string) (leave.Request, error) {
	req := leave.ReviewRequest{Status: decision, Comment: comment}
	if err := req.Validate(); err != nil {
		return leave.Request{}, err
	}

	current, ok := s.find(leaveID)
	if !ok {
		return leave.Request{}, leave.ErrRequestNotFound
	}
	if !current.Status.CanTransitionTo(decision) {
		return current, leave.ErrAlreadyProcessed
	}

	optimistic := current
	optimistic.Status = decision
	optimistic.ManagerComment = comment
	s.upsert(optimistic)

	var updated leave.Request
	if err := s.api.Put(ctx, "/leave/"+leaveID+"/status", &req, &updated); err != nil {
		s.upsert(current)
		return current, fmt.Errorf("failed to update leave status: %w", err)
	}

	s.upsert(updated)
	s.logger.Info("leave request reviewed", "leave_id", leaveID, "status", updated.Status)
	return updated, nil
}

// MyRequests fetches the employee's own requests and replaces the cache.
func (s *Service) MyRequests(ctx context.Context) ([]leave.Request, error) {
	return s.fetchList(ctx, "/leave/mine")
}

// PendingRequests fetches the manager's review queue and replaces the
// cache. One list is cached at a time; the employee and manager views are
// never mounted together.
func (s *Service) PendingRequests(ctx context.Context) ([]leave.Request, error) {
	return s.fetchList(ctx, "/leave/pending")
}

// Requests returns a copy of the cached list.
func (s *Service) Requests() []leave.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]leave.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Service) fetchList(ctx context.Context, path string) ([]leave.Request, error) {
	var list []leave.Request
	if err := s.api.Get(ctx, path, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch leave requests: %w", err)
	}

	s.mu.Lock()
	s.requests = list
	s.mu.Unlock()
	return s.Requests(), nil
}

func (s *Service) find(leaveID string) (leave.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.LeaveID == leaveID {
			return r, true
		}
	}
	return leave.Request{}, false
}

func (s *Service) upsert(req leave.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.requests {
		if r.LeaveID == req.LeaveID {
			s.requests[i] = req
			return
		}
	}
	s.requests = append(s.requests, req)
}
