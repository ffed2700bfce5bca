// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/veyra/internal/platform/middleware"
	requestutil "github.com/taibuivan/veyra/internal/platform/request"
	"github.com/taibuivan/veyra/internal/platform/respond"
	"github.com/taibuivan/veyra/internal/platform/sec"
	"github.com/taibuivan/veyra/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the identity lifecycle entry
// points (Registration, Login, Rotation, Profile, Password Reset). Every
// route carries a declarative access gate; the handler bodies themselves
// never re-check authentication state.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST   /register        : Creates a new account (anonymous; admins bypass).
//   - POST   /login           : Authenticates and returns a JWT (anonymous only).
//   - POST   /refresh         : Rotates an expired session (ungated).
//   - PATCH  /me              : Updates the caller's profile (authenticated).
//   - POST   /password        : Changes the caller's password (authenticated).
//   - DELETE /users/{id}      : Removes an identity (authenticated).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Anonymous endpoints. Register alone lets administrators through so
	// they can enroll accounts on behalf of others.
	router.With(middleware.Guard(middleware.Anonymous(sec.RoleAdmin))).
		Post("/register", handler.register)
	router.With(middleware.Guard(middleware.Anonymous())).
		Post("/login", handler.login)

	// Ungated endpoints: refresh proves itself against the stored session,
	// and the reset flow proves itself with the emailed token.
	router.Post("/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Authenticated endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Authenticated()))
		r.Patch("/me", handler.updateProfile)
		r.Post("/password", handler.editPassword)
		r.Delete("/users/{id}", handler.deleteIdentity)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	ClientID        string `json:"client_id"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
}

type refreshRequest struct {
	AccessToken string `json:"access_token"`
	ClientID    string `json:"client_id"`
}

type updateProfileRequest struct {
	CurrentPassword string `json:"current_password"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	ClientID        string `json:"client_id"`
}

type editPasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	ClientID        string `json:"client_id"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// # Handlers

/*
Register handles the creation of a new identity.

POST /api/v1/auth/register

Description: Validates input, checks for identity conflicts, persists the
new account, and (for self-registration) signs the caller straight in.
Admin-submitted registrations create elevated accounts and return no tokens.

Request:
  - Body: registerRequest (Username, Email, Password, ConfirmPassword, ClientID)

Response:
  - 201: User plus access token (token omitted for admin-created accounts)
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 403: AlreadyAuthenticated: Caller already holds a session
  - 409: Conflict: Username or Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		MaxLen(FieldUsername, input.Username, 32).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Confirm(FieldConfirmPassword, input.ConfirmPassword, input.Password).
		Required(FieldClientID, input.ClientID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		ClientID: input.ClientID,
	}, requestutil.Identity(request))

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Admin enrollment: the created account starts without a session
	if result.Tokens == nil {
		respond.Created(writer, map[string]any{
			FieldUser: result.User,
		})
		return
	}

	respond.Created(writer, map[string]any{
		FieldUser:        result.User,
		FieldAccessToken: result.Tokens.AccessToken,
	})
}

/*
Login authenticates an identity and establishes its single session.

POST /api/v1/auth/login

Description: Verifies credentials and issues a fresh token pair, superseding
any session the identity held before. Only the access token leaves the
server; the refresh token stays on the user record.

Request:
  - Body: loginRequest (Username, Password, ClientID)

Response:
  - 200: User profile and access token
  - 401: InvalidCredentials: Unknown username or wrong password
  - 403: AlreadyAuthenticated: Caller already holds a session
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password).
		Required(FieldClientID, input.ClientID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Username: input.Username,
		Password: input.Password,
		ClientID: input.ClientID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldUser:        session.User,
		FieldAccessToken: session.Tokens.AccessToken,
	})
}

/*
Refresh exchanges an expired access token for a fresh one.

POST /api/v1/auth/refresh

Description: The client presents its stale access token plus the clientId it
logged in with; the server validates the STORED refresh token and rotates
the pair. The route is ungated because the presented access token is usually
expired and the request must still be admitted.

Request:
  - Body: refreshRequest (AccessToken, ClientID)

Response:
  - 200: New access token credentials
  - 401: TokenMalformed / TokenExpired / Unauthorized: Session no longer validates
  - 404: NotFound: Token subject no longer exists
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAccessToken, input.AccessToken).
		Required(FieldClientID, input.ClientID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Rotate(request.Context(), input.AccessToken, input.ClientID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldAccessToken: session.Tokens.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int64(handler.authService.tokens.AccessTTL() / time.Second),
	})
}

/*
UpdateProfile changes the caller's email and optionally their password.

PATCH /api/v1/auth/me

Description: Requires re-proving the current password. Returns a fresh
access token because a password change rolls the refresh secret.

Request:
  - Body: updateProfileRequest (CurrentPassword, Email, Password?, ConfirmPassword?, ClientID)

Response:
  - 200: Updated user profile and access token
  - 401: InvalidCredentials: Wrong current password
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldClientID, input.ClientID)

	// Password change rides along only when a new password is supplied
	if input.Password != "" {
		validator.MinLen(FieldPassword, input.Password, 8).
			Confirm(FieldConfirmPassword, input.ConfirmPassword, input.Password)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.UpdateProfile(request.Context(), userID, UpdateProfileInput{
		CurrentPassword: input.CurrentPassword,
		Email:           input.Email,
		NewPassword:     input.Password,
		ClientID:        input.ClientID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldUser:        session.User,
		FieldAccessToken: session.Tokens.AccessToken,
	})
}

/*
EditPassword replaces the caller's password.

POST /api/v1/auth/password

Description: Verifies the current password, rejects reuse, and persists the
new hash — the single act that revokes every outstanding refresh token. The
caller's own session survives via the reissued pair.

Request:
  - Body: editPasswordRequest (CurrentPassword, Password, ConfirmPassword, ClientID)

Response:
  - 200: User profile and fresh access token
  - 400: ValidationError: New password matches the current one
  - 401: InvalidCredentials: Wrong current password
*/
func (handler *Handler) editPassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input editPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Confirm(FieldConfirmPassword, input.ConfirmPassword, input.Password).
		Required(FieldClientID, input.ClientID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.EditPassword(request.Context(), userID, EditPasswordInput{
		CurrentPassword: input.CurrentPassword,
		NewPassword:     input.Password,
		ClientID:        input.ClientID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldUser:        session.User,
		FieldAccessToken: session.Tokens.AccessToken,
	})
}

/*
DeleteIdentity removes an identity outright.

DELETE /api/v1/auth/users/{id}

Description: Reports whether anything was actually deleted rather than
erroring on an absent identity, so repeated calls behave identically.

Response:
  - 200: {"deleted": bool}
  - 400: ValidationError: Malformed identifier
*/
func (handler *Handler) deleteIdentity(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, FieldID)

	validator := &validate.Validator{}
	validator.Required(FieldID, id).UUID(FieldID, id)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	deleted, err := handler.authService.Delete(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldDeleted: deleted,
	})
}

/*
ForgotPassword begins the password-recovery flow.

POST /api/v1/auth/forgot-password

Description: Always reports success; whether the email exists is never
revealed, to prevent account enumeration.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Generic acknowledgement message
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.authService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "If that email is registered, a reset link is on its way",
	})
}

/*
ResetPassword completes the password-recovery flow.

POST /api/v1/auth/reset-password

Description: Consumes the emailed token and replaces the password hash,
which also ends any session the account still held.

Request:
  - Body: resetPasswordRequest (Token, Password, ConfirmPassword)

Response:
  - 200: Confirmation message
  - 404: NotFound: Token is invalid or expired
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Confirm(FieldConfirmPassword, input.ConfirmPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password has been reset",
	})
}
