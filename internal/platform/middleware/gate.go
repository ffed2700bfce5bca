// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"

	"github.com/taibuivan/veyra/internal/platform/apperr"
	"github.com/taibuivan/veyra/internal/platform/ctxutil"
	"github.com/taibuivan/veyra/internal/platform/respond"
	"github.com/taibuivan/veyra/internal/platform/sec"
)

// # Operation Gates

// GateKind enumerates the authentication pre-conditions an operation may declare.
type GateKind int

const (
	// GateNone performs no identity check.
	GateNone GateKind = iota

	// GateAuthenticated requires a resolved (non-anonymous) identity.
	GateAuthenticated

	// GateAnonymous requires that NO identity was resolved.
	GateAnonymous
)

// Gate is a declarative pre-condition attached to an operation at route
// registration time. The gate is evaluated against the identity resolved by
// [Authenticate] before the operation body runs; on failure the body never
// executes.
type Gate struct {
	Kind GateKind

	// BypassRoles lists roles permitted through a [GateAnonymous] gate even
	// though they are authenticated. Used by register, where an admin may
	// create further accounts.
	BypassRoles []string
}

// Authenticated returns a gate that requires a signed-in caller.
func Authenticated() Gate {
	return Gate{Kind: GateAuthenticated}
}

// Anonymous returns a gate that requires an anonymous caller.
//
// Authenticated callers holding any of bypassRoles pass anyway.
func Anonymous(bypassRoles ...string) Gate {
	return Gate{Kind: GateAnonymous, BypassRoles: bypassRoles}
}

// Check evaluates the gate against the resolved identity.
//
// Evaluation is pure: no I/O, no side effects, nil error means pass.
func (gate Gate) Check(claims *sec.AccessClaims) error {
	switch gate.Kind {
	case GateAuthenticated:
		if claims == nil {
			return apperr.Unauthenticated()
		}

	case GateAnonymous:
		if claims == nil {
			return nil
		}
		for _, role := range gate.BypassRoles {
			if sec.HasRole(claims.Roles, role) {
				return nil
			}
		}
		return apperr.AlreadyAuthenticated()
	}

	return nil
}

// Guard composes a [Gate] with a handler: the gate runs first, and the wrapped
// handler only executes when it passes.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
//	router.With(middleware.Guard(middleware.Anonymous())).Post("/login", handler.login)
func Guard(gate Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetIdentity(request.Context())

			if err := gate.Check(claims); err != nil {
				respond.Error(writer, request, err)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequireRole blocks requests unless the authenticated caller holds the given role.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It implies
// [Authenticated], so the two never need to be stacked.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetIdentity(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthenticated())
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !sec.HasRole(claims.Roles, role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
