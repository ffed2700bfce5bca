// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/veyra/internal/platform/constants"
	"github.com/taibuivan/veyra/internal/platform/ctxutil"
	"github.com/taibuivan/veyra/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify access tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the [sec.TokenService]
// implementation, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (*sec.AccessClaims, error)
}

// Authenticate resolves the caller's identity from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, the request proceeds as anonymous.
//  3. If present, parse and verify the access token via [TokenVerifier].
//  4. On success, inject [*sec.AccessClaims] into the request context.
//
// # Failure Semantics
//
// A missing, malformed, or expired token NEVER fails the request here. The
// request simply proceeds with the anonymous identity (nil claims), and the
// [Guard] attached to each operation decides whether that is acceptable. This
// keeps "no credential supplied" and "must be anonymous" operations working
// through one uniform path.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := resolveIdentity(request, verifier)
			if claims == nil {
				next.ServeHTTP(writer, request)
				return
			}

			ctx := ctxutil.WithIdentity(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// resolveIdentity extracts and verifies the bearer token, returning nil for
// every failure mode (the anonymous identity).
func resolveIdentity(request *http.Request, verifier TokenVerifier) *sec.AccessClaims {
	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if authHeader == "" {
		return nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != constants.BearerScheme {
		return nil
	}

	claims, err := verifier.VerifyAccessToken(parts[1])
	if err != nil {
		return nil
	}

	// Identity summary comes straight from the claims — no store round-trip.
	return claims
}
