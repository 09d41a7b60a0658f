package live

import "github.com/huddlechat/huddle/internal/models"

// Application paths the router can target.
const (
	PathRoot       = "/"
	PathOnboarding = "/onboarding"
	PathGroups     = "/groups"
)

// RouteState is the latest value of every source the routing decision
// depends on. The sources update independently and in no guaranteed
// order; the decision is recomputed from whatever is currently held.
type RouteState struct {
	IdentityResolved bool
	Identity         *models.Identity
	ProfileResolved  bool
	Profile          *models.Profile
	Path             string
}

// Route returns the path the session should be redirected to, or false
// when the current path is already correct. It is a pure function and
// idempotent: applied to its own output with unchanged identity and
// profile it requests no further redirect.
func Route(s RouteState) (string, bool) {
	if !s.IdentityResolved {
		return "", false
	}
	if s.Identity == nil {
		if s.Path != PathRoot {
			return PathRoot, true
		}
		return "", false
	}
	if !s.ProfileResolved {
		return "", false
	}
	if s.Profile == nil {
		if s.Path != PathOnboarding {
			return PathOnboarding, true
		}
		return "", false
	}
	if s.Path == PathRoot || s.Path == PathOnboarding {
		return PathGroups, true
	}
	return "", false
}
