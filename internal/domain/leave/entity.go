package leave

type CategoryType string

const (
	CategorySick      CategoryType = "SICK"
	CategoryCasual    CategoryType = "CASUAL"
	CategoryPlanned   CategoryType = "PLANNED"
	CategoryUnplanned CategoryType = "UNPLANNED"
)

func (c CategoryType) Valid() bool {
	switch c {
	case CategorySick, CategoryCasual, CategoryPlanned, CategoryUnplanned:
		return true
	}
	return false
}

type FinancialType string

const (
	FinancialPaid   FinancialType = "PAID"
	FinancialUnpaid FinancialType = "UNPAID"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusWithdrawn Status = "WITHDRAWN"
)

// CanTransitionTo enforces the request state machine: only PENDING moves,
// and only to a terminal status.
func (s Status) CanTransitionTo(next Status) bool {
	if s != StatusPending {
		return false
	}
	switch next {
	case StatusApproved, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// Request is a leave request as the backend reports it. Dates travel as
// YYYY-MM-DD strings, matching the wire format; LeaveDuration is in working
// days with 0.5 increments and is always backend-computed.
type Request struct {
	LeaveID        string        `json:"leaveId,omitempty"`
	EmployeeID     string        `json:"employeeId"`
	CategoryType   CategoryType  `json:"categoryType"`
	FinancialType  FinancialType `json:"financialType"`
	FromDate       string        `json:"fromDate"`
	ToDate         string        `json:"toDate"`
	PartialDay     bool          `json:"partialDay"`
	LeaveDuration  float64       `json:"leaveDuration"`
	Context        string        `json:"context"`
	AttachmentName string        `json:"attachmentName,omitempty"`
	Status         Status        `json:"status"`
	ManagerComment string        `json:"managerComment,omitempty"`
}
