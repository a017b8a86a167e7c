package leave

import "context"

// Service is the leave-request workflow as consumed by the portal pages.
type Service interface {
	// ScheduleCalculation debounces a duration recalculation for the query;
	// only the latest issued calculation may deliver a result.
	ScheduleCalculation(q DurationQuery, onResult func(float64), onError func(error))
	Calculate(ctx context.Context, q DurationQuery) (float64, error)
	CheckAvailability(ctx context.Context, employeeID string, duration float64) (Availability, error)

	Submit(ctx context.Context, draft Request, attachment *Attachment) (Request, error)
	Withdraw(ctx context.Context, leaveID string) error
	Review(ctx context.Context, leaveID string, decision Status, comment string) (Request, error)

	MyRequests(ctx context.Context) ([]Request, error)
	PendingRequests(ctx context.Context) ([]Request, error)
	Requests() []Request
}

// Attachment is an optional file submitted alongside a request.
type Attachment struct {
	Name    string
	Content []byte
}

// Confirmer gates withdraw behind an explicit user confirmation.
type Confirmer interface {
	Confirm(prompt string) bool
}
