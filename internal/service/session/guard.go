package session

import (
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
)

// State is the route guard's verdict for a page render.
type State string

const (
	StateChecking State = "CHECKING"
	StateDenied   State = "DENIED"
	StateGranted  State = "GRANTED"
)

// Decision carries the verdict plus the redirect target when denied. Reason
// distinguishes missing auth from a role mismatch even though both redirect
// to login today (observed product behavior, kept as-is).
type Decision struct {
	State    State
	Redirect string
	Reason   string
}

// Evaluate is the pure guard policy. Granted holds iff the store finished
// loading, a session exists, and the role is allowed (an empty allowed list
// admits every role). While loading, callers must render only a loading
// indicator, never the protected content.
func Evaluate(snap session.Snapshot, allowed []session.Role) Decision {
	if snap.IsLoading {
		return Decision{State: StateChecking}
	}
	if !snap.IsAuthenticated() {
		return Decision{State: StateDenied, Redirect: session.RouteLogin, Reason: "not authenticated"}
	}
	if len(allowed) > 0 && !roleAllowed(snap.User.Role, allowed) {
		return Decision{State: StateDenied, Redirect: session.RouteLogin, Reason: "role not permitted"}
	}
	return Decision{State: StateGranted}
}

func roleAllowed(role session.Role, allowed []session.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Guard binds the policy to a store: the decision is re-evaluated on every
// session change and pushed to onChange.
type Guard struct {
	allowed     []session.Role
	onChange    func(Decision)
	unsubscribe func()

	decision Decision
}

func NewGuard(store session.Store, allowed []session.Role, onChange func(Decision)) *Guard {
	g := &Guard{allowed: allowed, onChange: onChange}
	g.decision = Evaluate(store.Snapshot(), allowed)
	g.unsubscribe = store.Subscribe(func(snap session.Snapshot) {
		next := Evaluate(snap, g.allowed)
		if next == g.decision {
			return
		}
		g.decision = next
		if g.onChange != nil {
			g.onChange(next)
		}
	})
	if g.onChange != nil {
		g.onChange(g.decision)
	}
	return g
}

// Decision returns the current verdict.
func (g *Guard) Decision() Decision {
	return g.decision
}

// Close detaches the guard from the store.
func (g *Guard) Close() {
	g.unsubscribe()
}
