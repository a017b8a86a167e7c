package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/api"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/token"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/validator"
)

// StoreImpl is the session store state machine. It is the only writer of the
// session storage keys; readers get snapshots via Snapshot()/Subscribe().
type StoreImpl struct {
	api     *api.Client
	storage storage.Storage
	nav     session.Navigator
	logger  *slog.Logger

	mu           sync.RWMutex
	user         *session.User
	accessToken  string
	refreshToken string
	loading      bool

	subs    map[int]func(session.Snapshot)
	nextSub int
}

func NewStore(client *api.Client, st storage.Storage, nav session.Navigator, logger *slog.Logger) *StoreImpl {
	return &StoreImpl{
		api:     client,
		storage: st,
		nav:     nav,
		logger:  logger,
		loading: true,
		subs:    make(map[int]func(session.Snapshot)),
	}
}

// Login implements session.Store.
func (s *StoreImpl) Login(ctx context.Context, req session.LoginRequest) (session.Snapshot, error) {
	if err := req.Validate(); err != nil {
		return s.Snapshot(), err
	}

	var resp session.LoginResponse
	if err := s.api.Post(ctx, "/auth/login", &req, &resp); err != nil {
		s.logger.Warn("login rejected", "error", err)
		return s.Snapshot(), normalizeLoginError(err)
	}

	if err := s.persistSession(resp); err != nil {
		// All-or-nothing: never leave a partial session in storage.
		s.purgeSessionKeys()
		return s.Snapshot(), fmt.Errorf("failed to persist session: %w", err)
	}

	if req.RememberMe {
		_ = s.storage.Set(storage.KeyRememberedUsername, req.InputKey)
	}
	if resp.User.FirstLogin {
		// Stashed to prefill the password-setup form; cleared by
		// CompleteFirstLogin.
		_ = s.storage.Set(storage.KeyTempPassword, req.Password)
	}

	s.mu.Lock()
	user := resp.User
	s.user = &user
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	s.loading = false
	s.mu.Unlock()
	s.notify()

	s.logger.Info("login succeeded", "user_id", resp.User.UserID, "role", resp.User.Role)
	return s.Snapshot(), nil
}

// Logout implements session.Store. The remote invalidation is best-effort;
// local state is always cleared.
func (s *StoreImpl) Logout(ctx context.Context) {
	if err := s.api.Post(ctx, "/auth/logout", nil, nil); err != nil {
		s.logger.Warn("remote logout failed, clearing local session anyway", "error", err)
	}

	if err := s.storage.Clear(); err != nil {
		s.logger.Warn("failed to clear storage on logout", "error", err)
	}

	s.mu.Lock()
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.loading = false
	s.mu.Unlock()
	s.notify()

	s.nav.Navigate(session.RouteLogin)
}

// UpdateUser implements session.Store: a shallow merge into both the
// in-memory and durable user record.
func (s *StoreImpl) UpdateUser(patch session.UserPatch) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return session.ErrNotAuthenticated
	}
	if patch.FirstLogin != nil {
		s.user.FirstLogin = *patch.FirstLogin
	}
	if patch.Name != nil {
		s.user.Name = *patch.Name
	}
	if patch.Email != nil {
		s.user.Email = *patch.Email
	}
	user := *s.user
	s.mu.Unlock()

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.storage.Set(storage.KeyUser, string(raw)); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}

	s.notify()
	return nil
}

// Restore implements session.Store. Durable storage is an untrusted
// boundary: anything malformed is purged and treated as unauthenticated.
func (s *StoreImpl) Restore(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	}()

	rawUser, ok, err := s.storage.Get(storage.KeyUser)
	if err != nil {
		return fmt.Errorf("failed to read stored session: %w", err)
	}

	user, wellFormed := parseStoredUser(rawUser, ok)
	if !wellFormed {
		if ok {
			s.logger.Warn("purging malformed stored session")
		}
		s.purgeSessionKeys()
		return nil
	}

	accessToken, _, _ := s.storage.Get(storage.KeyAccessToken)
	refreshToken, _, _ := s.storage.Get(storage.KeyRefreshToken)
	if accessToken == "" {
		s.purgeSessionKeys()
		return nil
	}

	// A token that parses and is already expired cannot be restored; an
	// opaque token passes through, the backend stays the authority.
	if claims, err := token.Parse(accessToken); err == nil && claims.Expired(time.Now()) {
		s.logger.Info("stored access token expired, purging session")
		s.purgeSessionKeys()
		return nil
	}

	s.mu.Lock()
	s.user = user
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.mu.Unlock()

	s.logger.Info("session restored", "user_id", user.UserID, "role", user.Role)

	// A refresh on the login screen should land on the role's home.
	if s.nav.Current() == session.RouteLogin {
		s.nav.Navigate(session.HomeRoute(user.Role))
	}
	return nil
}

// CompleteFirstLogin posts the password change, clears the firstLogin flag
// and wipes the transient temp password.
func (s *StoreImpl) CompleteFirstLogin(ctx context.Context, newPassword string) error {
	req := session.ChangePasswordRequest{NewPassword: newPassword}
	if err := req.Validate(); err != nil {
		return err
	}

	snap := s.Snapshot()
	if !snap.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}

	if err := s.api.Post(ctx, "/auth/change-password", &req, nil); err != nil {
		return normalizeLoginError(err)
	}

	cleared := false
	if err := s.UpdateUser(session.UserPatch{FirstLogin: &cleared}); err != nil {
		return err
	}
	_ = s.storage.Delete(storage.KeyTempPassword)

	s.nav.Navigate(session.HomeRoute(snap.User.Role))
	return nil
}

// Snapshot implements session.Store.
func (s *StoreImpl) Snapshot() session.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := session.Snapshot{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		IsLoading:    s.loading,
	}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	return snap
}

// Subscribe implements session.Store; fn runs on every state change.
func (s *StoreImpl) Subscribe(fn func(session.Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// RememberedUsername returns the stored login prefill, if any.
func (s *StoreImpl) RememberedUsername() string {
	value, _, _ := s.storage.Get(storage.KeyRememberedUsername)
	return value
}

// TempPassword returns the transient first-login password prefill, if any.
func (s *StoreImpl) TempPassword() string {
	value, _, _ := s.storage.Get(storage.KeyTempPassword)
	return value
}

func (s *StoreImpl) persistSession(resp session.LoginResponse) error {
	raw, err := json.Marshal(resp.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.storage.Set(storage.KeyUser, string(raw)); err != nil {
		return err
	}
	if err := s.storage.Set(storage.KeyAccessToken, resp.AccessToken); err != nil {
		return err
	}
	return s.storage.Set(storage.KeyRefreshToken, resp.RefreshToken)
}

func (s *StoreImpl) purgeSessionKeys() {
	for _, key := range []string{storage.KeyUser, storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyTempPassword} {
		_ = s.storage.Delete(key)
	}
}

func (s *StoreImpl) notify() {
	snap := s.Snapshot()
	s.mu.RLock()
	subs := make([]func(session.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// parseStoredUser decides whether a stored user record is usable: present,
// valid JSON, and carrying both userId and a known role.
func parseStoredUser(raw string, present bool) (*session.User, bool) {
	if !present || validator.IsEmpty(raw) || raw == "null" || raw == "undefined" {
		return nil, false
	}
	var user session.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, false
	}
	if user.UserID == "" || !user.Role.Valid() {
		return nil, false
	}
	return &user, true
}

// normalizeLoginError maps backend failures onto the two user-facing login
// errors; raw messages and stack traces never reach the UI.
func normalizeLoginError(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		if strings.Contains(msg, "incorrect") || strings.Contains(msg, "failed") ||
			apiErr.Status == 401 {
			return session.ErrIncorrectCredentials
		}
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return err
	}
	return session.ErrLoginUnavailable
}
