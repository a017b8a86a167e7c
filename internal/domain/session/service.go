package session

import "context"

// Store owns the session lifecycle. All durable writes to the session keys
// go through it; readers get immutable snapshots.
type Store interface {
	Login(ctx context.Context, req LoginRequest) (Snapshot, error)
	Logout(ctx context.Context)
	UpdateUser(patch UserPatch) error
	Restore(ctx context.Context) error
	CompleteFirstLogin(ctx context.Context, newPassword string) error
	Snapshot() Snapshot
	Subscribe(fn func(Snapshot)) (unsubscribe func())
}

// Navigator abstracts the routing shell; pages supply the real one.
type Navigator interface {
	Navigate(route string)
	Current() string
}
