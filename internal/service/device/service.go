package device

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/device"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/api"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/poller"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/storage"
)

// RegistryImpl lists and terminates device sessions. Fetches follow
// last-write-wins: a stale poll result is simply overwritten by the next
// successful one, acceptable because sessions change infrequently.
type RegistryImpl struct {
	api     *api.Client
	storage storage.Storage
	confirm device.Confirmer
	logger  *slog.Logger
	poll    *poller.Poller

	mu         sync.Mutex
	deviceID   string
	sessions   []device.Session
	refreshing bool
}

func NewRegistry(client *api.Client, st storage.Storage, confirm device.Confirmer, pollInterval time.Duration, logger *slog.Logger) *RegistryImpl {
	r := &RegistryImpl{
		api:     client,
		storage: st,
		confirm: confirm,
		logger:  logger,
	}
	r.poll = poller.New("device-sessions", pollInterval, r.refresh)
	return r
}

// DeviceID implements device.Registry: a stable per-installation UUID,
// generated once and persisted until storage is cleared.
func (r *RegistryImpl) DeviceID() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deviceID != "" {
		return r.deviceID, nil
	}

	value, ok, err := r.storage.Get(storage.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if ok && value != "" {
		r.deviceID = value
		return value, nil
	}

	value = uuid.NewString()
	if err := r.storage.Set(storage.KeyDeviceID, value); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	r.deviceID = value
	r.logger.Info("device id generated", "device_id", value)
	return value, nil
}

// ListSessions implements device.Registry: fetches active and historical
// sessions, merged and sorted descending by login time.
func (r *RegistryImpl) ListSessions(ctx context.Context) ([]device.Session, error) {
	if err := r.refresh(ctx); err != nil {
		return nil, err
	}
	return r.Sessions(), nil
}

// Sessions returns the last fetched list.
func (r *RegistryImpl) Sessions() []device.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]device.Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Refreshing reports whether a fetch is in flight, for the view's loading
// state.
func (r *RegistryImpl) Refreshing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshing
}

// LogoutDevice implements device.Registry. Logging out the current device
// ends the caller's own session, so it requires explicit confirmation.
func (r *RegistryImpl) LogoutDevice(ctx context.Context, deviceID string) error {
	current, err := r.DeviceID()
	if err != nil {
		return err
	}

	if deviceID == current {
		if !r.confirm.Confirm("This will log you out on this device. Continue?") {
			return device.ErrConfirmationDeclined
		}
	}

	if err := r.api.Post(ctx, "/sessions/"+deviceID+"/logout", nil, nil); err != nil {
		return fmt.Errorf("failed to log out device: %w", err)
	}

	if err := r.refresh(ctx); err != nil {
		r.logger.Warn("session list refresh after logout failed", "error", err)
	}
	return nil
}

// LogoutAllExceptCurrent implements device.Registry.
func (r *RegistryImpl) LogoutAllExceptCurrent(ctx context.Context) error {
	if !r.confirm.Confirm("This will log out every other device. Continue?") {
		return device.ErrConfirmationDeclined
	}

	current, err := r.DeviceID()
	if err != nil {
		return err
	}

	req := device.LogoutAllRequest{DeviceID: current}
	if err := r.api.Post(ctx, "/sessions/logout-all-except-current", &req, nil); err != nil {
		return fmt.Errorf("failed to log out other devices: %w", err)
	}

	if err := r.refresh(ctx); err != nil {
		r.logger.Warn("session list refresh after logout failed", "error", err)
	}
	return nil
}

// Start begins the background poll; Stop must be called when the sessions
// view unmounts.
func (r *RegistryImpl) Start() {
	r.poll.Start()
}

func (r *RegistryImpl) Stop() {
	r.poll.Stop()
}

func (r *RegistryImpl) refresh(ctx context.Context) error {
	r.mu.Lock()
	r.refreshing = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.refreshing = false
		r.mu.Unlock()
	}()

	var resp device.SessionListResponse
	if err := r.api.Get(ctx, "/sessions/mine", &resp); err != nil {
		return fmt.Errorf("failed to fetch device sessions: %w", err)
	}

	merged := make([]device.Session, 0, len(resp.ActiveSessions)+len(resp.LoggedOutSessions))
	merged = append(merged, resp.ActiveSessions...)
	merged = append(merged, resp.LoggedOutSessions...)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].LoginTime.After(merged[j].LoginTime)
	})

	r.mu.Lock()
	r.sessions = merged
	r.mu.Unlock()
	return nil
}
