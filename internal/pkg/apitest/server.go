package apitest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/device"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
)

// FixtureUser is one login account known to the fake backend.
type FixtureUser struct {
	User     session.User
	Password string

	passwordHash []byte
}

// Server is an in-process portal backend for tests. It mints real HS256
// tokens, checks bcrypt password hashes and answers every endpoint the
// client talks to, counting hits per route so tests can assert that a code
// path made (or avoided) a call.
type Server struct {
	HTTP *httptest.Server

	tokenAuth *jwtauth.JWTAuth

	mu       sync.Mutex
	hits     map[string]int
	users    map[string]*FixtureUser
	sessions device.SessionListResponse
	leaves   []leave.Request
	nextID   int

	// LoginError, when set, fails every login with this message.
	LoginError string
	// LoginErrorStatus overrides the status of an injected login failure;
	// zero means 401.
	LoginErrorStatus int
	// DurationFn overrides the default working-days calculation.
	DurationFn func(from, to time.Time, partialDay bool) float64
	// AvailabilityFn decides paid-leave availability; the default always
	// grants it.
	AvailabilityFn func(employeeID string, duration float64) leave.Availability
}

// NewServer starts the fake backend. Callers own shutdown via Close.
func NewServer() *Server {
	s := &Server{
		tokenAuth: jwtauth.New("HS256", []byte("apitest-secret"), nil),
		hits:      make(map[string]int),
		users:     make(map[string]*FixtureUser),
		nextID:    1,
	}

	logFormat := httplog.SchemaECS.Concise(true)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       slog.LevelError,
		ReplaceAttr: logFormat.ReplaceAttr,
	}))

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.countHits)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleOK)
	r.Post("/auth/change-password", s.handleOK)

	r.Get("/sessions/mine", s.handleSessionList)
	r.Post("/sessions/{deviceId}/logout", s.handleSessionLogout)
	r.Post("/sessions/logout-all-except-current", s.handleLogoutAllExcept)

	r.Post("/leave/calculate-duration", s.handleCalculateDuration)
	r.Get("/leave/availability", s.handleAvailability)
	r.Post("/leave/apply", s.handleApply)
	r.Put("/leave/update", s.handleUpdate)
	r.Post("/leave/{leaveId}/withdraw", s.handleWithdraw)
	r.Put("/leave/{leaveId}/status", s.handleReviewStatus)
	r.Get("/leave/mine", s.handleLeaveList)
	r.Get("/leave/pending", s.handlePendingList)

	s.HTTP = httptest.NewServer(r)
	return s
}

func (s *Server) Close() {
	s.HTTP.Close()
}

// URL returns the backend base URL for client construction.
func (s *Server) URL() string {
	return s.HTTP.URL
}

// AddUser registers a login account; the password is stored bcrypt-hashed.
func (s *Server) AddUser(u FixtureUser) {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("apitest: hash password: %v", err))
	}
	u.passwordHash = hash

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.User.Email] = &u
}

// SetSessions seeds the device-session lists returned by /sessions/mine.
func (s *Server) SetSessions(resp device.SessionListResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = resp
}

// SeedLeave inserts a leave request as already known to the backend.
func (s *Server) SeedLeave(req leave.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves = append(s.leaves, req)
}

// SetLeaveStatus flips a request's status behind the client's back, for
// tests that need the backend ahead of a stale local cache.
func (s *Server) SetLeaveStatus(leaveID string, status leave.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leaves {
		if s.leaves[i].LeaveID == leaveID {
			s.leaves[i].Status = status
			return
		}
	}
}

// Leaves returns a copy of the backend's request table.
func (s *Server) Leaves() []leave.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]leave.Request, len(s.leaves))
	copy(out, s.leaves)
	return out
}

// Hits reports how many requests hit the given route, keyed as
// "METHOD /route/{param}" using the chi route pattern.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// MintToken issues an access token the way the real backend does, for tests
// that need a pre-authenticated client.
func (s *Server) MintToken(userID string, role session.Role, expiresAt time.Time) string {
	_, tokenString, err := s.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"role":    string(role),
		"type":    "access",
		"exp":     expiresAt.Unix(),
	})
	if err != nil {
		panic(fmt.Sprintf("apitest: encode token: %v", err))
	}
	return tokenString
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		s.mu.Lock()
		s.hits[r.Method+" "+pattern]++
		s.mu.Unlock()
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InputKey string `json:"inputKey"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	s.mu.Lock()
	loginError := s.LoginError
	loginStatus := s.LoginErrorStatus
	user, ok := s.users[req.InputKey]
	s.mu.Unlock()

	if loginError != "" {
		if loginStatus == 0 {
			loginStatus = http.StatusUnauthorized
		}
		writeError(w, loginStatus, "LOGIN_FAILED", loginError)
		return
	}
	if !ok || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Incorrect email or password")
		return
	}

	accessToken := s.MintToken(user.User.UserID, user.User.Role, time.Now().Add(time.Hour))
	writeSuccess(w, http.StatusOK, session.LoginResponse{
		User:         user.User,
		AccessToken:  accessToken,
		RefreshToken: "refresh-" + user.User.UserID,
	})
}

func (s *Server) handleOK(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := s.sessions
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleSessionLogout(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for i, sess := range s.sessions.ActiveSessions {
		if sess.DeviceID == deviceID {
			sess.LogoutTime = &now
			s.sessions.ActiveSessions = append(s.sessions.ActiveSessions[:i], s.sessions.ActiveSessions[i+1:]...)
			s.sessions.LoggedOutSessions = append(s.sessions.LoggedOutSessions, sess)
			writeSuccess(w, http.StatusOK, nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Session not found")
}

func (s *Server) handleLogoutAllExcept(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	kept := s.sessions.ActiveSessions[:0]
	for _, sess := range s.sessions.ActiveSessions {
		if sess.DeviceID == req.DeviceID {
			kept = append(kept, sess)
			continue
		}
		sess.LogoutTime = &now
		s.sessions.LoggedOutSessions = append(s.sessions.LoggedOutSessions, sess)
	}
	s.sessions.ActiveSessions = kept
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleCalculateDuration(w http.ResponseWriter, r *http.Request) {
	var q leave.DurationQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	from, err := time.Parse("2006-01-02", q.FromDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid fromDate")
		return
	}
	to, err := time.Parse("2006-01-02", q.ToDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid toDate")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "fromDate must not be after toDate")
		return
	}

	s.mu.Lock()
	fn := s.DurationFn
	s.mu.Unlock()
	if fn == nil {
		fn = workingDays
	}

	writeSuccess(w, http.StatusOK, leave.DurationResult{LeaveDuration: fn(from, to, q.PartialDay)})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employeeId")
	duration, err := strconv.ParseFloat(r.URL.Query().Get("duration"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid duration")
		return
	}

	s.mu.Lock()
	fn := s.AvailabilityFn
	s.mu.Unlock()

	availability := leave.Availability{Available: true}
	if fn != nil {
		availability = fn(employeeID, duration)
	}
	writeSuccess(w, http.StatusOK, availability)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeLeavePayload(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	req.LeaveID = fmt.Sprintf("leave-%d", s.nextID)
	s.nextID++
	req.Status = leave.StatusPending
	s.leaves = append(s.leaves, req)
	s.mu.Unlock()

	writeSuccess(w, http.StatusCreated, req)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeLeavePayload(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.leaves {
		if existing.LeaveID != req.LeaveID {
			continue
		}
		if existing.Status != leave.StatusPending {
			writeError(w, http.StatusConflict, "CONFLICT", "Leave request already processed")
			return
		}
		req.Status = leave.StatusPending
		s.leaves[i] = req
		writeSuccess(w, http.StatusOK, req)
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Leave request not found")
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	leaveID := chi.URLParam(r, "leaveId")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.leaves {
		if existing.LeaveID != leaveID {
			continue
		}
		if existing.Status != leave.StatusPending {
			writeError(w, http.StatusConflict, "CONFLICT", "Leave request already processed")
			return
		}
		s.leaves[i].Status = leave.StatusWithdrawn
		writeSuccess(w, http.StatusOK, s.leaves[i])
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Leave request not found")
}

func (s *Server) handleReviewStatus(w http.ResponseWriter, r *http.Request) {
	leaveID := chi.URLParam(r, "leaveId")

	var req leave.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.leaves {
		if existing.LeaveID != leaveID {
			continue
		}
		if existing.Status != leave.StatusPending {
			writeError(w, http.StatusConflict, "CONFLICT", "Leave request already processed")
			return
		}
		s.leaves[i].Status = req.Status
		s.leaves[i].ManagerComment = req.Comment
		writeSuccess(w, http.StatusOK, s.leaves[i])
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Leave request not found")
}

func (s *Server) handleLeaveList(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, s.Leaves())
}

func (s *Server) handlePendingList(w http.ResponseWriter, r *http.Request) {
	pending := make([]leave.Request, 0)
	for _, req := range s.Leaves() {
		if req.Status == leave.StatusPending {
			pending = append(pending, req)
		}
	}
	writeSuccess(w, http.StatusOK, pending)
}

func (s *Server) decodeLeavePayload(w http.ResponseWriter, r *http.Request) (leave.Request, bool) {
	var req leave.Request
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid multipart body")
		return req, false
	}
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid payload")
		return req, false
	}
	if _, header, err := r.FormFile("attachment"); err == nil {
		req.AttachmentName = header.Filename
	}
	return req, true
}

// workingDays counts calendar days excluding weekends; a partial day halves
// the total, matching the backend's default rule.
func workingDays(from, to time.Time, partialDay bool) float64 {
	days := 0.0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days++
	}
	if partialDay {
		days /= 2
	}
	return days
}

type responseEnvelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, responseEnvelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, responseEnvelope{Success: false, Error: &errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
