// Package guard decides authorization for protected routes. A route
// declares the exact set of roles allowed to reach it; membership is the
// whole decision. There is no seniority between roles: ADMIN_SYSTEM reaches
// a STUDENT-only route only when listed there explicitly.
package guard

import "github.com/skolara/skolara/internal/identity"

// Allowed reports whether the role is a member of the required set. An
// empty required set denies everyone; unprotected routes simply do not
// install the guard.
func Allowed(role identity.Role, required ...identity.Role) bool {
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}
