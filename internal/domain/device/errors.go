package device

import "errors"

var (
	ErrConfirmationDeclined = errors.New("confirmation declined")
	ErrSessionNotFound      = errors.New("device session not found")
)
