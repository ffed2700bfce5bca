// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/veyra/internal/platform/middleware"
	requestutil "github.com/taibuivan/veyra/internal/platform/request"
	"github.com/taibuivan/veyra/internal/platform/respond"
	"github.com/taibuivan/veyra/internal/platform/sec"
	"github.com/taibuivan/veyra/internal/platform/validate"
	"github.com/taibuivan/veyra/internal/users/auth"
	"github.com/taibuivan/veyra/pkg/pagination"
)

// Handler implements the identity-directory HTTP endpoints.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with directory routes.
//
// # Endpoints
//   - GET /      : Paginated identity listing (admin only).
//   - GET /{id}  : Public profile lookup.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.With(middleware.RequireRole(sec.RoleAdmin)).Get("/", handler.list)
	router.Get("/{id}", handler.get)

	return router
}

/*
List returns a paginated slice of the identity directory.

GET /api/v1/users?page=N&limit=M

Description: Restricted to administrators; pagination parameters are clamped
to safe bounds before reaching storage.

Response:
  - 200: Paginated list of user profiles
  - 401: Unauthenticated: No valid session
  - 403: Forbidden: Caller lacks the admin role
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	users, metadata, err := handler.accountService.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, metadata)
}

/*
Get returns a single public profile by ID.

GET /api/v1/users/{id}

Response:
  - 200: User profile
  - 400: ValidationError: Malformed identifier
  - 404: NotFound: No identity with this ID
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, auth.FieldID)

	validator := &validate.Validator{}
	validator.Required(auth.FieldID, id).UUID(auth.FieldID, id)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Get(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}
