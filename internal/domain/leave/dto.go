package leave

import "github.com/cmlabs-hris/hris-portal-go/internal/pkg/validator"

// DurationQuery is the ephemeral input to the working-day calculation.
type DurationQuery struct {
	FromDate   string `json:"fromDate"`
	ToDate     string `json:"toDate"`
	PartialDay bool   `json:"partialDay"`
}

// Complete reports whether both dates are present; an incomplete query is
// never sent to the backend.
func (q DurationQuery) Complete() bool {
	return !validator.IsEmpty(q.FromDate) && !validator.IsEmpty(q.ToDate)
}

func (q DurationQuery) Validate() error {
	var errs validator.ValidationErrors

	from, okFrom := validator.IsValidDate(q.FromDate)
	if !okFrom {
		errs = append(errs, validator.ValidationError{
			Field:   "fromDate",
			Message: "fromDate must be a valid YYYY-MM-DD date",
		})
	}
	to, okTo := validator.IsValidDate(q.ToDate)
	if !okTo {
		errs = append(errs, validator.ValidationError{
			Field:   "toDate",
			Message: "toDate must be a valid YYYY-MM-DD date",
		})
	}
	if okFrom && okTo && from.After(to) {
		errs = append(errs, validator.ValidationError{
			Field:   "fromDate",
			Message: "fromDate must not be after toDate",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DurationResult struct {
	LeaveDuration float64 `json:"leaveDuration"`
}

// Availability is the backend's verdict on whether enough paid balance
// exists for a requested duration. Message is displayed verbatim when
// Available is false.
type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

type ReviewRequest struct {
	Status  Status `json:"status"`
	Comment string `json:"comment,omitempty"`
}

func (r *ReviewRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Status != StatusApproved && r.Status != StatusRejected {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be APPROVED or REJECTED",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}
