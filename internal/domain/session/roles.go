package session

// Well-known routes of the portal shell.
const (
	RouteLogin       = "/login"
	RouteDefaultHome = "/dashboard"
)

// homeRoutes is the canonical role→route table. The portal previously grew
// two divergent copies of this mapping (login knew ADMIN vs default, the
// password-setup page knew six roles); every redirect now goes through here.
var homeRoutes = map[Role]string{
	RoleAdmin:    "/admin/dashboard",
	RoleEmployee: "/dashboard",
	RoleManager:  "/manager/dashboard",
	RoleClient:   "/client/dashboard",
	RoleHR:       "/hr/dashboard",
	RoleFinance:  "/finance/dashboard",
}

// HomeRoute returns the landing route for a role.
func HomeRoute(r Role) string {
	if route, ok := homeRoutes[r]; ok {
		return route
	}
	return RouteDefaultHome
}
