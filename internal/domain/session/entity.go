package session

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleClient   Role = "CLIENT"
	RoleHR       Role = "HR"
	RoleFinance  Role = "FINANCE"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleManager, RoleClient, RoleHR, RoleFinance:
		return true
	}
	return false
}

// User is the identity slice of the session as persisted under the "user"
// storage key.
type User struct {
	UserID     string `json:"userId"`
	Role       Role   `json:"role"`
	FirstLogin bool   `json:"firstLogin"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
}

// Snapshot is an immutable view of the session store. Readers never see the
// live state; mutation goes through Login/Logout/UpdateUser/Restore only.
type Snapshot struct {
	User         *User
	AccessToken  string
	RefreshToken string
	IsLoading    bool
}

// IsAuthenticated holds iff both the user and the access token are present.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

// UserPatch is a partial update merged into the stored user, e.g. clearing
// firstLogin after the password setup flow.
type UserPatch struct {
	FirstLogin *bool
	Name       *string
	Email      *string
}
