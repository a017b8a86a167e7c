package leave

import "errors"

// BalanceError carries the backend's shortfall message, which the UI must
// display verbatim alongside the suggestion to switch to UNPAID.
type BalanceError struct {
	Message string
}

func (e *BalanceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrInsufficientBalance.Error()
}

func (e *BalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

var (
	ErrInvalidDateRange     = errors.New("from date must not be after to date")
	ErrZeroDuration         = errors.New("leave duration must be greater than zero")
	ErrInsufficientBalance  = errors.New("insufficient paid leave balance")
	ErrAlreadyProcessed     = errors.New("leave request already processed")
	ErrRequestNotFound      = errors.New("leave request not found")
	ErrConfirmationDeclined = errors.New("confirmation declined")
	ErrCalculationFailed    = errors.New("could not calculate leave duration")
)
