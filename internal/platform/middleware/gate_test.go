// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/veyra/internal/platform/apperr"
	"github.com/taibuivan/veyra/internal/platform/ctxutil"
	"github.com/taibuivan/veyra/internal/platform/middleware"
	"github.com/taibuivan/veyra/internal/platform/sec"
)

func userClaims(roles ...string) *sec.AccessClaims {
	return &sec.AccessClaims{UserID: "user-123", Roles: roles}
}

/*
TestGate_Check exercises each gate kind against anonymous and authenticated
identities, including the admin bypass on the anonymous gate.
*/
func TestGate_Check(t *testing.T) {
	tests := []struct {
		name     string
		gate     middleware.Gate
		claims   *sec.AccessClaims
		wantCode string // empty means pass
	}{
		{"none_anonymous", middleware.Gate{}, nil, ""},
		{"none_authenticated", middleware.Gate{}, userClaims(sec.RoleUser), ""},

		{"authenticated_pass", middleware.Authenticated(), userClaims(sec.RoleUser), ""},
		{"authenticated_reject_anonymous", middleware.Authenticated(), nil, "UNAUTHENTICATED"},

		{"anonymous_pass", middleware.Anonymous(), nil, ""},
		{"anonymous_reject_signed_in", middleware.Anonymous(), userClaims(sec.RoleUser), "ALREADY_AUTHENTICATED"},

		{"bypass_lets_admin_through", middleware.Anonymous(sec.RoleAdmin), userClaims(sec.RoleUser, sec.RoleAdmin), ""},
		{"bypass_still_rejects_plain_user", middleware.Anonymous(sec.RoleAdmin), userClaims(sec.RoleUser), "ALREADY_AUTHENTICATED"},
		{"bypass_still_allows_anonymous", middleware.Anonymous(sec.RoleAdmin), nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gate.Check(tt.claims)

			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, tt.wantCode, ae.Code)
		})
	}
}

/*
TestGuard verifies that a failing gate stops the wrapped handler and a
passing gate lets it run.
*/
func TestGuard(t *testing.T) {
	handlerRan := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		handlerRan = true
	})

	guarded := middleware.Guard(middleware.Authenticated())(next)

	// 1. Anonymous request is stopped with 401
	recorder := httptest.NewRecorder()
	guarded.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/password", nil))

	assert.False(t, handlerRan)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// 2. Authenticated request runs the handler
	request := httptest.NewRequest(http.MethodPost, "/password", nil)
	request = request.WithContext(ctxutil.WithIdentity(request.Context(), userClaims(sec.RoleUser)))

	recorder = httptest.NewRecorder()
	guarded.ServeHTTP(recorder, request)

	assert.True(t, handlerRan)
}

/*
TestRequireRole verifies role enforcement for the admin-only directory listing.
*/
func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	protected := middleware.RequireRole(sec.RoleAdmin)(next)

	tests := []struct {
		name       string
		claims     *sec.AccessClaims
		wantStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"plain_user", userClaims(sec.RoleUser), http.StatusForbidden},
		{"admin", userClaims(sec.RoleUser, sec.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tt.claims != nil {
				request = request.WithContext(ctxutil.WithIdentity(request.Context(), tt.claims))
			}

			recorder := httptest.NewRecorder()
			protected.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}

// staticVerifier returns fixed claims for one token string and errors otherwise.
type staticVerifier struct {
	token  string
	claims *sec.AccessClaims
}

func (v *staticVerifier) VerifyAccessToken(tokenString string) (*sec.AccessClaims, error) {
	if tokenString == v.token {
		return v.claims, nil
	}
	return nil, apperr.TokenMalformed()
}

/*
TestAuthenticate verifies that every credential failure mode degrades to the
anonymous identity instead of failing the request.
*/
func TestAuthenticate(t *testing.T) {
	verifier := &staticVerifier{token: "good-token", claims: userClaims(sec.RoleUser)}

	var seen *sec.AccessClaims
	next := http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetIdentity(request.Context())
	})
	authenticated := middleware.Authenticate(verifier)(next)

	tests := []struct {
		name          string
		header        string
		wantAnonymous bool
	}{
		{"no_header", "", true},
		{"wrong_scheme", "Basic good-token", true},
		{"missing_token", "Bearer", true},
		{"invalid_token", "Bearer bad-token", true},
		{"valid_token", "Bearer good-token", false},
		{"case_insensitive_scheme", "bearer good-token", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}

			recorder := httptest.NewRecorder()
			authenticated.ServeHTTP(recorder, request)

			// The request always reaches the handler
			if tt.wantAnonymous {
				assert.Nil(t, seen)
			} else {
				require.NotNil(t, seen)
				assert.Equal(t, "user-123", seen.UserID)
			}
		})
	}
}
