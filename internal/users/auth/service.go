// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"

	"github.com/taibuivan/veyra/internal/platform/apperr"
	"github.com/taibuivan/veyra/internal/platform/constants"
	"github.com/taibuivan/veyra/internal/platform/sec"
	"github.com/taibuivan/veyra/pkg/canonical"
	"github.com/taibuivan/veyra/pkg/uuid"
)

// # Service

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// issuance, or rotation logic must be reviewed by the security team.
type Service struct {
	userRepository       UserRepository
	resetTokenRepository ResetTokenRepository
	tokens               *sec.TokenService
}

// NewService constructs a new authentication [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	resetRepo ResetTokenRepository,
	tokens *sec.TokenService,
) *Service {
	return &Service{
		userRepository:       userRepo,
		resetTokenRepository: resetRepo,
		tokens:               tokens,
	}
}

// TokenPair is the dual-token result of a successful authentication event.
//
// The refresh token never crosses the transport boundary: handlers forward
// only the access token to clients, while the refresh token lives on the
// user record and is consulted server-side during rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

/*
issueTokens mints a fresh access/refresh pair for the user and persists the
refresh token as the identity's single active session.

Description: The refresh token is signed with a per-identity secret derived
from the current password hash, so a later password change invalidates it
without any bookkeeping. Persisting it supersedes whatever token was stored
before — this is the rotation step shared by login, registration, profile
updates, and refresh itself.

Parameters:
  - context: context.Context
  - user: *User
  - clientID: string

Returns:
  - *TokenPair: Freshly signed pair, already persisted
  - error: Signing or persistence failures
*/
func (service *Service) issueTokens(context context.Context, user *User, clientID string) (*TokenPair, error) {

	// Mint the short-lived access token carrying identity and roles
	accessToken, err := service.tokens.GenerateAccessToken(user.ID, user.Roles)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	// Mint the refresh token under the password-hash-derived secret
	refreshToken, err := service.tokens.GenerateRefreshToken(user.ID, clientID, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Persist as the single active session, superseding any previous token
	if err := service.userRepository.UpdateRefreshToken(context, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("auth_service_session_persist_failed: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

/*
verifyCredentials resolves a username to its identity and checks the password.

Description: Failures are attributed to the offending field so clients can
render them inline. The username is canonicalized the same way registration
canonicalizes it, so lookups are accent- and case-insensitive.

Parameters:
  - context: context.Context
  - username: string
  - password: string

Returns:
  - *User: Authenticated identity
  - error: apperr.InvalidCredentials on either field
*/
func (service *Service) verifyCredentials(context context.Context, username, password string) (*User, error) {

	// Canonical lookup: accents and case never distinguish identities
	user, err := service.userRepository.FindByUsername(context, canonical.Username(username))
	if err != nil {
		return nil, apperr.InvalidCredentials(FieldUsername, "Username not found")
	}

	// Constant-time bcrypt comparison to prevent timing attacks
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.InvalidCredentials(FieldPassword, "Wrong credentials")
	}

	return user, nil
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new identity.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	ClientID string
}

// RegisterResult is the outcome of a registration.
//
// Tokens is nil when the account was created by an administrator on behalf
// of someone else: the admin keeps their own session and the new account
// starts without one.
type RegisterResult struct {
	User   *User
	Tokens *TokenPair
}

/*
Register validates, hashes, and persists a brand-new identity.

Description: Self-registration signs the caller straight in with a fresh
token pair. When the actor is an authenticated administrator the created
account is granted the admin role set and no tokens are issued.

Parameters:
  - context: context.Context
  - input: RegisterInput
  - actor: *sec.AccessClaims (nil for anonymous callers)

Returns:
  - *RegisterResult: Created entity plus session tokens where applicable
  - error: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput, actor *sec.AccessClaims) (*RegisterResult, error) {

	// Canonicalize once; stored and looked up in this form forever after
	username := canonical.Username(input.Username)

	// Verify username uniqueness. Return a client-safe Conflict error.
	_, err := service.userRepository.FindByUsername(context, username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Verify email uniqueness. Return a client-safe Conflict error.
	_, err = service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Admin-created accounts inherit the elevated role set
	roles := sec.DefaultRoles()
	if actor.IsAdmin() {
		roles = sec.AdminRoles()
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Roles:        roles,
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// An admin enrolling someone else keeps their own session
	if actor.IsAdmin() {
		return &RegisterResult{User: user}, nil
	}

	// Self-registration doubles as the first login
	tokens, err := service.issueTokens(context, user, input.ClientID)
	if err != nil {
		return nil, err
	}

	return &RegisterResult{User: user, Tokens: tokens}, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username string
	Password string
	ClientID string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	User   *User
	Tokens *TokenPair
}

/*
Login validates user credentials and issues a fresh token pair.

Description: Issuance supersedes any refresh token the identity held before,
so at most one session validates at a time.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - error: apperr.InvalidCredentials or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {

	// Resolve identity, attributing failures to the offending field
	user, err := service.verifyCredentials(context, input.Username, input.Password)
	if err != nil {
		return nil, err
	}

	// Issue and persist the new pair, superseding the previous session
	tokens, err := service.issueTokens(context, user, input.ClientID)
	if err != nil {
		return nil, err
	}

	return &LoginSession{User: user, Tokens: tokens}, nil
}

// # Rotation Flow

/*
Rotate exchanges an expired access token for a fresh pair.

Description: The client presents its (typically expired) access token and
the clientId it logged in with. The access token is decoded WITHOUT
signature verification purely to learn which identity is asking; the actual
proof is the stored refresh token, which must still validate under the
secret derived from the identity's current password hash and must have been
issued to the same clientId. A password change, a newer login, or a
logged-out account all fail this check and end the session.

Parameters:
  - context: context.Context
  - accessToken: string
  - clientID: string

Returns:
  - *LoginSession: Fresh pair plus the resolved identity
  - error: apperr.TokenMalformed, apperr.TokenExpired, apperr.NotFound, or apperr.Unauthorized
*/
func (service *Service) Rotate(context context.Context, accessToken, clientID string) (*LoginSession, error) {

	// Decode the presented access token only to learn the subject.
	// Claims are untrusted until the stored refresh token verifies below.
	claims, err := service.tokens.DecodeAccessUnverified(accessToken)
	if err != nil {
		return nil, err
	}

	// Resolve the identity the token claims to belong to
	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		return nil, err
	}

	// No stored token means no session to rotate
	if user.ActiveRefreshToken == nil {
		return nil, apperr.Unauthorized("No active session to refresh")
	}

	// Verify the STORED token under the password-hash-derived secret.
	// This is where superseded sessions and password changes die.
	refreshClaims, err := service.tokens.VerifyRefreshToken(*user.ActiveRefreshToken, user.PasswordHash)
	if err != nil {
		return nil, err
	}

	// The session must have been established by the same client
	if refreshClaims.ClientID != clientID {
		return nil, apperr.Unauthorized("Session belongs to a different client")
	}

	// Issue the replacement pair; the old refresh token is now superseded
	tokens, err := service.issueTokens(context, user, clientID)
	if err != nil {
		return nil, err
	}

	return &LoginSession{User: user, Tokens: tokens}, nil
}

// # Profile Flow

// UpdateProfileInput carries the mutable profile fields plus proof of identity.
type UpdateProfileInput struct {
	CurrentPassword string
	Email           string
	NewPassword     string // Optional; empty means keep the current password
	ClientID        string
}

/*
UpdateProfile changes the identity's email and optionally its password.

Description: Requires re-proving the current password. Because a password
change rolls the refresh secret, a fresh token pair is issued so the caller's
session survives its own update.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *LoginSession: Updated entity plus reissued tokens
  - error: apperr.InvalidCredentials or storage errors
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*LoginSession, error) {

	// Resolve the caller's identity
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	// Re-prove the current password before touching anything
	if !sec.CheckPasswordHash(input.CurrentPassword, user.PasswordHash) {
		return nil, apperr.InvalidCredentials(FieldCurrentPassword, "Wrong credentials")
	}

	// Persist the profile change
	user.Email = input.Email
	if err := service.userRepository.Update(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_profile_update_failed: %w", err)
	}

	// Optional password rotation rides along with the profile update
	if input.NewPassword != "" {
		newHash, err := sec.HashPassword(input.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
		}
		if err := service.userRepository.UpdatePassword(context, user.ID, newHash); err != nil {
			return nil, fmt.Errorf("auth_service_password_update_failed: %w", err)
		}
		user.PasswordHash = newHash
	}

	// Reissue under the (possibly new) refresh secret
	tokens, err := service.issueTokens(context, user, input.ClientID)
	if err != nil {
		return nil, err
	}

	return &LoginSession{User: user, Tokens: tokens}, nil
}

// EditPasswordInput carries a password change request.
type EditPasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ClientID        string
}

/*
EditPassword replaces the identity's password after verifying the current one.

Description: Rolling the hash rolls the refresh secret, revoking every
outstanding refresh token at once. A fresh pair is issued so the caller
stays signed in. Reusing the current password is rejected.

Parameters:
  - context: context.Context
  - userID: string
  - input: EditPasswordInput

Returns:
  - *LoginSession: Entity plus reissued tokens
  - error: apperr.InvalidCredentials, apperr.ValidationError, or storage errors
*/
func (service *Service) EditPassword(context context.Context, userID string, input EditPasswordInput) (*LoginSession, error) {

	// Resolve the caller's identity
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	// Re-prove the current password
	if !sec.CheckPasswordHash(input.CurrentPassword, user.PasswordHash) {
		return nil, apperr.InvalidCredentials(FieldCurrentPassword, "Wrong credentials")
	}

	// A "change" to the same password would silently keep old sessions alive
	if sec.CheckPasswordHash(input.NewPassword, user.PasswordHash) {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   FieldPassword,
			Message: "Must be different from the current password",
		})
	}

	// Hash and persist; this is the revocation moment
	newHash, err := sec.HashPassword(input.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}
	if err := service.userRepository.UpdatePassword(context, user.ID, newHash); err != nil {
		return nil, fmt.Errorf("auth_service_password_update_failed: %w", err)
	}
	user.PasswordHash = newHash

	// Keep the caller signed in under the new secret
	tokens, err := service.issueTokens(context, user, input.ClientID)
	if err != nil {
		return nil, err
	}

	return &LoginSession{User: user, Tokens: tokens}, nil
}

// # Removal Flow

/*
Delete removes the identity outright.

Description: Idempotent at the contract level: deleting an absent identity
reports false rather than an error.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - bool: Whether an identity existed and was removed
  - error: Storage failures
*/
func (service *Service) Delete(context context.Context, id string) (bool, error) {
	deleted, err := service.userRepository.Remove(context, id)
	if err != nil {
		return false, fmt.Errorf("auth_service_delete_failed: %w", err)
	}
	return deleted, nil
}

// # Password Reset Flow

/*
RequestPasswordReset begins the forgotten-password flow for an email address.

Description: Always reports success to the caller; whether the email exists
is never revealed, to prevent account enumeration. When it does exist, a
single-use token is stored in Redis for a limited window.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: The generated token (empty when the email is unknown)
  - error: Token generation or storage failures
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) (string, error) {

	// Unknown emails succeed silently
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return "", nil
	}

	// Mint and stash the single-use token
	token, err := sec.GenerateSecureToken(constants.ResetTokenLength)
	if err != nil {
		return "", fmt.Errorf("auth_service_reset_token_failed: %w", err)
	}
	if err := service.resetTokenRepository.Set(context, token, user.ID, constants.ResetTokenTTL); err != nil {
		return "", fmt.Errorf("auth_service_reset_store_failed: %w", err)
	}

	// TODO: Hand the token to the mail dispatcher once it lands
	return token, nil
}

/*
ResetPassword completes the forgotten-password flow.

Description: Consumes the token, replaces the password hash, and thereby
revokes any outstanding session for free.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - error: apperr.NotFound (invalid or expired token) or storage failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {

	// Resolve the token back to an identity
	userID, err := service.resetTokenRepository.Get(context, token)
	if err != nil {
		return err
	}

	// Hash and persist the replacement password
	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}
	if err := service.userRepository.UpdatePassword(context, userID, newHash); err != nil {
		return fmt.Errorf("auth_service_password_update_failed: %w", err)
	}

	// Single use: the token dies with its first redemption
	if err := service.resetTokenRepository.Delete(context, token); err != nil {
		return fmt.Errorf("auth_service_reset_consume_failed: %w", err)
	}

	return nil
}
