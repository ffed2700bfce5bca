// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/veyra/internal/platform/apperr"
	"github.com/taibuivan/veyra/internal/platform/ctxutil"
	"github.com/taibuivan/veyra/internal/platform/sec"
	"github.com/taibuivan/veyra/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Identity extracts the resolved access claims from the request context.

Returns nil when the caller is anonymous.
*/
func Identity(request *http.Request) *sec.AccessClaims {
	return ctxutil.GetIdentity(request.Context())
}

/*
RequiredIdentity ensures the request is authenticated and returns the claims.

Returns:
  - *sec.AccessClaims: The authenticated caller's claims
  - error: apperr.Unauthenticated if the caller is anonymous
*/
func RequiredIdentity(request *http.Request) (*sec.AccessClaims, error) {

	// Get caller claims
	claims := ctxutil.GetIdentity(request.Context())

	// If the caller is anonymous, return an error
	if claims == nil {
		return nil, apperr.Unauthenticated()
	}

	return claims, nil
}

/*
RequiredUserID returns the User ID of the currently authenticated caller.

Returns:
  - string: User UUID
  - error: apperr.Unauthenticated if the caller is anonymous
*/
func RequiredUserID(request *http.Request) (string, error) {

	// Get caller claims
	claims, err := RequiredIdentity(request)

	// If the caller is anonymous, return an error
	if err != nil {
		return "", err
	}

	return claims.UserID, nil
}
