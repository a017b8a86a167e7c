package device

type SessionListResponse struct {
	ActiveSessions    []Session `json:"activeSessions"`
	LoggedOutSessions []Session `json:"loggedOutSessions"`
}

type LogoutAllRequest struct {
	DeviceID string `json:"deviceId"`
}
