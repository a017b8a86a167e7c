package device

import "context"

// Registry lists and terminates device sessions for the current user.
type Registry interface {
	DeviceID() (string, error)
	ListSessions(ctx context.Context) ([]Session, error)
	Sessions() []Session
	Refreshing() bool
	LogoutDevice(ctx context.Context, deviceID string) error
	LogoutAllExceptCurrent(ctx context.Context) error
	Start()
	Stop()
}

// Confirmer gates destructive actions behind an explicit user confirmation.
type Confirmer interface {
	Confirm(prompt string) bool
}
