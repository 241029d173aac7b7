// Package guard decides, per navigation, whether a gated view may render.
// Decisions are a pure function of the session snapshot: no network I/O, no
// side effects.
package guard

import (
	"github.com/truenumber/truenumber-cli/internal/model"
	"github.com/truenumber/truenumber-cli/internal/session"
)

// Capability is an access requirement a view declares.
type Capability string

const (
	// CapabilityAuthenticated requires a non-empty session.
	CapabilityAuthenticated Capability = "authenticated"
	// CapabilityAdmin additionally requires the admin role.
	CapabilityAdmin Capability = "admin"
)

// Decision is the guard's verdict for one navigation.
type Decision string

const (
	DecisionRender        Decision = "render"
	DecisionRedirectLogin Decision = "redirect_login"
	DecisionRedirectHome  Decision = "redirect_home"
	// DecisionDefer means the session is still restoring; the caller should
	// wait rather than assume unauthenticated, avoiding a redirect flash.
	DecisionDefer Decision = "defer"
)

// Decide returns the verdict for the given session snapshot and capability.
func Decide(snap session.Snapshot, capability Capability) Decision {
	switch snap.State {
	case session.StateRestoring:
		return DecisionDefer
	case session.StateAuthenticated:
	default:
		return DecisionRedirectLogin
	}

	if capability == CapabilityAdmin {
		if snap.User == nil || snap.User.Role != model.RoleAdmin {
			return DecisionRedirectHome
		}
	}
	return DecisionRender
}
