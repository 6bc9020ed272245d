// Package identity holds the authenticated caller as seen by the portal core.
package identity

import "strings"

// AnonymousActor is the audit actor recorded when no principal is present
const AnonymousActor = "Customer"

// Principal is the authenticated caller supplied by the authentication collaborator.
// The core never verifies credentials, it only consumes this value.
type Principal struct {
	ID       string
	Email    string
	Name     string
	Username string
	Roles    []string
}

// IsAnonymous reports whether the principal carries no identity at all
func (p *Principal) IsAnonymous() bool {
	return p == nil || (p.ID == "" && p.Email == "" && p.Username == "")
}

// MatchEmail returns the lower-cased email used for customer matching.
// Principals without an email fall back to their username.
func (p *Principal) MatchEmail() string {
	if p == nil {
		return ""
	}
	email := p.Email
	if email == "" {
		email = p.Username
	}
	return strings.ToLower(strings.TrimSpace(email))
}

// ActorName returns the name recorded in audit trails
func (p *Principal) ActorName() string {
	if p == nil {
		return AnonymousActor
	}
	if p.Name != "" {
		return p.Name
	}
	if p.Email != "" {
		return p.Email
	}
	return AnonymousActor
}

// HasRole checks if the principal has the given role (case-insensitive)
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
