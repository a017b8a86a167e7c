package device

import "time"

// Session is one server-tracked login from one browser/installation,
// distinct from the in-memory auth session.
type Session struct {
	DeviceID   string     `json:"deviceId"`
	DeviceName string     `json:"deviceName"`
	IPAddress  string     `json:"ipAddress"`
	LoginTime  time.Time  `json:"loginTime"`
	LogoutTime *time.Time `json:"logoutTime,omitempty"`
}

// Active reports whether the session has not been logged out yet.
func (s Session) Active() bool {
	return s.LogoutTime == nil
}
