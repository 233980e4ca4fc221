// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"net/http"

	"github.com/tomtom215/scribe/internal/authz"
	"github.com/tomtom215/scribe/internal/indieauth"
)

// Actions
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionUndelete = "undelete"
)

// legacyScope satisfies every action.
const legacyScope = "post"

var actionCapabilities = map[string]string{
	ActionCreate:   authz.CapPublish,
	ActionUpdate:   authz.CapEdit,
	ActionDelete:   authz.CapDelete,
	ActionUndelete: authz.CapDelete,
}

// CapabilityChecker answers whether a local user holds a capability.
type CapabilityChecker interface {
	Can(userID, capability string) (bool, error)
}

// CheckScope authorizes action for ac. With an empty userID only the scope
// is checked.
func CheckScope(ac *indieauth.AuthContext, action, userID string, caps CapabilityChecker) *Error {
	scope := action
	if action == ActionUndelete {
		scope = ActionDelete
	}

	if !ac.HasScope(scope) && !ac.HasScope(legacyScope) {
		var granted []string
		if ac != nil {
			granted = ac.Scopes
		}
		return Errorf(KindInsufficientScope, http.StatusUnauthorized,
			"scope insufficient to %s posts", action).WithDebug(granted)
	}

	if userID == "" {
		return nil
	}

	capability, ok := actionCapabilities[action]
	if !ok {
		return InvalidRequest("unknown action %s", action)
	}
	if caps == nil {
		return nil
	}
	allowed, err := caps.Can(userID, capability)
	if err != nil {
		return ServerError(err)
	}
	if !allowed {
		return Errorf(KindForbidden, http.StatusForbidden, "cannot %s posts", action)
	}
	return nil
}

// RequireUser rejects a credential whose me did not resolve to a local
// user. allowAnonymous lifts the restriction for single-author sites that
// trust every token the verifier accepts.
func RequireUser(ac *indieauth.AuthContext, action string, allowAnonymous bool) *Error {
	if allowAnonymous || !ac.IsAnonymous() {
		return nil
	}
	var me string
	if ac != nil {
		me = ac.Me
	}
	return Errorf(KindForbidden, http.StatusForbidden,
		"%s is not a user of this site and cannot %s", me, action)
}
