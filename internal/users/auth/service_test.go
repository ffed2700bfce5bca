// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/veyra/internal/platform/apperr"
	"github.com/taibuivan/veyra/internal/platform/sec"
	"github.com/taibuivan/veyra/internal/users/auth"
)

// # In-memory fakes

// memoryUserRepository is a map-backed UserRepository for service tests.
type memoryUserRepository struct {
	users map[string]*auth.User // keyed by ID
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[string]*auth.User)}
}

func (repository *memoryUserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	if user, ok := repository.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryUserRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	for _, user := range repository.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, user := range repository.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryUserRepository) Create(_ context.Context, user *auth.User) error {
	copied := *user
	repository.users[user.ID] = &copied
	return nil
}

func (repository *memoryUserRepository) Update(_ context.Context, user *auth.User) error {
	stored, ok := repository.users[user.ID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.Email = user.Email
	return nil
}

func (repository *memoryUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	stored, ok := repository.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.PasswordHash = newHash
	return nil
}

func (repository *memoryUserRepository) UpdateRefreshToken(_ context.Context, userID, refreshToken string) error {
	stored, ok := repository.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.ActiveRefreshToken = &refreshToken
	return nil
}

func (repository *memoryUserRepository) Remove(_ context.Context, id string) (bool, error) {
	if _, ok := repository.users[id]; !ok {
		return false, nil
	}
	delete(repository.users, id)
	return true, nil
}

// memoryResetTokenRepository is a map-backed ResetTokenRepository.
type memoryResetTokenRepository struct {
	tokens map[string]string
}

func newMemoryResetTokenRepository() *memoryResetTokenRepository {
	return &memoryResetTokenRepository{tokens: make(map[string]string)}
}

func (repository *memoryResetTokenRepository) Set(_ context.Context, token, userID string, _ time.Duration) error {
	repository.tokens[token] = userID
	return nil
}

func (repository *memoryResetTokenRepository) Get(_ context.Context, token string) (string, error) {
	if userID, ok := repository.tokens[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Reset token")
}

func (repository *memoryResetTokenRepository) Delete(_ context.Context, token string) error {
	delete(repository.tokens, token)
	return nil
}

// # Test harness

type serviceHarness struct {
	service    *auth.Service
	users      *memoryUserRepository
	resets     *memoryResetTokenRepository
	tokens     *sec.TokenService
	background context.Context
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	users := newMemoryUserRepository()
	resets := newMemoryResetTokenRepository()
	tokens := sec.NewTokenService(
		"test-access-secret", "test-refresh-salt", "veyra.app",
		15*time.Minute, 7*24*time.Hour,
	)

	return &serviceHarness{
		service:    auth.NewService(users, resets, tokens),
		users:      users,
		resets:     resets,
		tokens:     tokens,
		background: context.Background(),
	}
}

func (h *serviceHarness) register(t *testing.T, username, email, password string) *auth.RegisterResult {
	t.Helper()

	result, err := h.service.Register(h.background, auth.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		ClientID: "client-abc",
	}, nil)
	require.NoError(t, err)
	return result
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, code, ae.Code)
}

// # Registration

/*
TestRegister_SelfSignsIn verifies that self-registration creates the account
with the default role set and establishes a session.
*/
func TestRegister_SelfSignsIn(t *testing.T) {
	h := newServiceHarness(t)

	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	assert.Equal(t, []string{sec.RoleUser}, result.User.Roles)
	require.NotNil(t, result.Tokens)
	assert.NotEmpty(t, result.Tokens.AccessToken)

	// The issued refresh token is now the stored active session
	stored, err := h.users.FindByID(h.background, result.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ActiveRefreshToken)
	assert.Equal(t, result.Tokens.RefreshToken, *stored.ActiveRefreshToken)
}

/*
TestRegister_AdminCreatesElevatedAccount verifies that an administrator can
enroll an account that starts with the admin role set and no session.
*/
func TestRegister_AdminCreatesElevatedAccount(t *testing.T) {
	h := newServiceHarness(t)

	actor := &sec.AccessClaims{UserID: "admin-1", Roles: sec.AdminRoles()}
	result, err := h.service.Register(h.background, auth.RegisterInput{
		Username: "bob",
		Email:    "bob@veyra.app",
		Password: "hunter22hunter22",
		ClientID: "client-abc",
	}, actor)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{sec.RoleUser, sec.RoleAdmin}, result.User.Roles)
	assert.Nil(t, result.Tokens)

	// No session was stored for the created account
	stored, err := h.users.FindByID(h.background, result.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ActiveRefreshToken)
}

/*
TestRegister_Conflicts verifies uniqueness of username and email.
*/
func TestRegister_Conflicts(t *testing.T) {
	h := newServiceHarness(t)
	h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	_, err := h.service.Register(h.background, auth.RegisterInput{
		Username: "alice", Email: "other@veyra.app", Password: "hunter22hunter22", ClientID: "c",
	}, nil)
	requireCode(t, err, "CONFLICT")

	_, err = h.service.Register(h.background, auth.RegisterInput{
		Username: "other", Email: "alice@veyra.app", Password: "hunter22hunter22", ClientID: "c",
	}, nil)
	requireCode(t, err, "CONFLICT")
}

/*
TestRegister_CanonicalizesUsername verifies that accents and case collapse to
one canonical identity at registration and login alike.
*/
func TestRegister_CanonicalizesUsername(t *testing.T) {
	h := newServiceHarness(t)

	result := h.register(t, "  Álice ", "alice@veyra.app", "hunter22hunter22")
	assert.Equal(t, "alice", result.User.Username)

	// A differently-accented spelling is the same identity
	_, err := h.service.Register(h.background, auth.RegisterInput{
		Username: "ALÏCE", Email: "other@veyra.app", Password: "hunter22hunter22", ClientID: "c",
	}, nil)
	requireCode(t, err, "CONFLICT")

	// And logs in as it
	_, err = h.service.Login(h.background, auth.LoginInput{
		Username: "ALÏCE", Password: "hunter22hunter22", ClientID: "client-abc",
	})
	assert.NoError(t, err)
}

// # Login

/*
TestLogin_FieldAttribution verifies that failures name the offending field.
*/
func TestLogin_FieldAttribution(t *testing.T) {
	h := newServiceHarness(t)
	h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	_, err := h.service.Login(h.background, auth.LoginInput{
		Username: "nobody", Password: "hunter22hunter22", ClientID: "c",
	})
	requireCode(t, err, "INVALID_CREDENTIALS")
	assert.Equal(t, auth.FieldUsername, apperr.As(err).Details[0].Field)

	_, err = h.service.Login(h.background, auth.LoginInput{
		Username: "alice", Password: "wrong-password", ClientID: "c",
	})
	requireCode(t, err, "INVALID_CREDENTIALS")
	assert.Equal(t, auth.FieldPassword, apperr.As(err).Details[0].Field)
}

/*
TestLogin_SupersedesPreviousSession verifies the single-session policy: a
second login replaces the stored refresh token, and rotation only works for
the latest one.
*/
func TestLogin_SupersedesPreviousSession(t *testing.T) {
	h := newServiceHarness(t)
	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	firstSession, err := h.service.Login(h.background, auth.LoginInput{
		Username: "alice", Password: "hunter22hunter22", ClientID: "client-one",
	})
	require.NoError(t, err)

	secondSession, err := h.service.Login(h.background, auth.LoginInput{
		Username: "alice", Password: "hunter22hunter22", ClientID: "client-two",
	})
	require.NoError(t, err)

	// Only the second login's refresh token is stored
	stored, err := h.users.FindByID(h.background, result.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ActiveRefreshToken)
	assert.NotEqual(t, firstSession.Tokens.RefreshToken, *stored.ActiveRefreshToken)
	assert.Equal(t, secondSession.Tokens.RefreshToken, *stored.ActiveRefreshToken)

	// The first client's rotation attempt dies on the client binding
	_, err = h.service.Rotate(h.background, firstSession.Tokens.AccessToken, "client-one")
	requireCode(t, err, "UNAUTHORIZED")

	// The second client rotates fine
	_, err = h.service.Rotate(h.background, secondSession.Tokens.AccessToken, "client-two")
	assert.NoError(t, err)
}

// # Rotation

/*
TestRotate_IssuesFreshPair verifies the happy path: presenting the access
token and client id yields a new pair and stores the new refresh token.
*/
func TestRotate_IssuesFreshPair(t *testing.T) {
	h := newServiceHarness(t)
	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	rotated, err := h.service.Rotate(h.background, result.Tokens.AccessToken, "client-abc")
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.Tokens.AccessToken)

	stored, err := h.users.FindByID(h.background, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, rotated.Tokens.RefreshToken, *stored.ActiveRefreshToken)
	assert.NotEqual(t, result.Tokens.RefreshToken, *stored.ActiveRefreshToken)
}

/*
TestRotate_Failures covers the rejection paths: garbage tokens, unknown
subjects, logged-out accounts, and client mismatches.
*/
func TestRotate_Failures(t *testing.T) {
	h := newServiceHarness(t)
	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	t.Run("garbage_access_token", func(t *testing.T) {
		_, err := h.service.Rotate(h.background, "not-a-jwt", "client-abc")
		requireCode(t, err, "TOKEN_MALFORMED")
	})

	t.Run("unknown_subject", func(t *testing.T) {
		ghostToken, err := h.tokens.GenerateAccessToken("ghost-id", sec.DefaultRoles())
		require.NoError(t, err)

		_, err = h.service.Rotate(h.background, ghostToken, "client-abc")
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("client_mismatch", func(t *testing.T) {
		_, err := h.service.Rotate(h.background, result.Tokens.AccessToken, "some-other-client")
		requireCode(t, err, "UNAUTHORIZED")
	})

	t.Run("no_active_session", func(t *testing.T) {
		// Simulate a logged-out account
		h.users.users[result.User.ID].ActiveRefreshToken = nil

		_, err := h.service.Rotate(h.background, result.Tokens.AccessToken, "client-abc")
		requireCode(t, err, "UNAUTHORIZED")
	})
}

/*
TestRotate_DeadAfterPasswordChange verifies the central revocation property
end to end: changing the password kills rotation for the old session without
any deny-list.
*/
func TestRotate_DeadAfterPasswordChange(t *testing.T) {
	h := newServiceHarness(t)
	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	// Roll the hash directly, bypassing EditPassword's session reissue,
	// as a password reset from another device would.
	newHash, err := sec.HashPassword("a-new-password-42")
	require.NoError(t, err)
	require.NoError(t, h.users.UpdatePassword(h.background, result.User.ID, newHash))

	_, err = h.service.Rotate(h.background, result.Tokens.AccessToken, "client-abc")
	requireCode(t, err, "TOKEN_MALFORMED")
}

// # Profile & Password

/*
TestUpdateProfile verifies email changes require the current password and
reissue the session.
*/
func TestUpdateProfile(t *testing.T) {
	h := newServiceHarness(t)
	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	_, err := h.service.UpdateProfile(h.background, result.User.ID, auth.UpdateProfileInput{
		CurrentPassword: "wrong", Email: "new@veyra.app", ClientID: "client-abc",
	})
	requireCode(t, err, "INVALID_CREDENTIALS")
	assert.Equal(t, auth.FieldCurrentPassword, apperr.As(err).Details[0].Field)

	session, err := h.service.UpdateProfile(h.background, result.User.ID, auth.UpdateProfileInput{
		CurrentPassword: "hunter22hunter22", Email: "new@veyra.app", ClientID: "client-abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@veyra.app", session.User.Email)
	assert.NotEmpty(t, session.Tokens.AccessToken)
}

/*
TestEditPassword verifies rejection of reuse and survival of the caller's own
session across the change.
*/
func TestEditPassword(t *testing.T) {
	h := newServiceHarness(t)
	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	// Reusing the current password is a validation failure on the password field
	_, err := h.service.EditPassword(h.background, result.User.ID, auth.EditPasswordInput{
		CurrentPassword: "hunter22hunter22", NewPassword: "hunter22hunter22", ClientID: "client-abc",
	})
	requireCode(t, err, "VALIDATION_ERROR")
	assert.Equal(t, auth.FieldPassword, apperr.As(err).Details[0].Field)

	// A real change succeeds and keeps the caller signed in
	session, err := h.service.EditPassword(h.background, result.User.ID, auth.EditPasswordInput{
		CurrentPassword: "hunter22hunter22", NewPassword: "a-new-password-42", ClientID: "client-abc",
	})
	require.NoError(t, err)

	// The editing client stays signed in: reissuance stored a fresh refresh
	// token under the new secret for this clientId, so even its pre-change
	// access token still rotates
	_, err = h.service.Rotate(h.background, result.Tokens.AccessToken, "client-abc")
	require.NoError(t, err)

	_, err = h.service.Rotate(h.background, session.Tokens.AccessToken, "client-abc")
	assert.NoError(t, err)
}

/*
TestEditPassword_EndsOtherClientSession verifies that a password change made
from one client ends the session a different client was holding.
*/
func TestEditPassword_EndsOtherClientSession(t *testing.T) {
	h := newServiceHarness(t)
	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	// A second device logs in; its session now owns the stored refresh token
	phone, err := h.service.Login(h.background, auth.LoginInput{
		Username: "alice", Password: "hunter22hunter22", ClientID: "client-phone",
	})
	require.NoError(t, err)

	// The phone changes the password
	_, err = h.service.EditPassword(h.background, result.User.ID, auth.EditPasswordInput{
		CurrentPassword: "hunter22hunter22", NewPassword: "a-new-password-42", ClientID: "client-phone",
	})
	require.NoError(t, err)

	// The original client's stale access token cannot rotate: the stored
	// session belongs to the phone now
	_, err = h.service.Rotate(h.background, result.Tokens.AccessToken, "client-abc")
	requireCode(t, err, "UNAUTHORIZED")

	// The phone's own session survived the change
	_, err = h.service.Rotate(h.background, phone.Tokens.AccessToken, "client-phone")
	assert.NoError(t, err)
}

// # Deletion

/*
TestDelete verifies idempotent removal reporting.
*/
func TestDelete(t *testing.T) {
	h := newServiceHarness(t)
	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	deleted, err := h.service.Delete(h.background, result.User.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = h.service.Delete(h.background, result.User.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

// # Password Reset

/*
TestPasswordReset_Flow runs the forgotten-password flow end to end and checks
that redeeming the token ends the account's active session.
*/
func TestPasswordReset_Flow(t *testing.T) {
	h := newServiceHarness(t)
	result := h.register(t, "alice", "alice@veyra.app", "hunter22hunter22")

	token, err := h.service.RequestPasswordReset(h.background, "alice@veyra.app")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, h.service.ResetPassword(h.background, token, "a-new-password-42"))

	// Token is single-use
	err = h.service.ResetPassword(h.background, token, "yet-another-password")
	requireCode(t, err, "NOT_FOUND")

	// Old session is dead, new password logs in
	_, err = h.service.Rotate(h.background, result.Tokens.AccessToken, "client-abc")
	require.Error(t, err)

	_, err = h.service.Login(h.background, auth.LoginInput{
		Username: "alice", Password: "a-new-password-42", ClientID: "client-abc",
	})
	assert.NoError(t, err)
}

/*
TestPasswordReset_UnknownEmailIsSilent verifies no account enumeration.
*/
func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	h := newServiceHarness(t)

	token, err := h.service.RequestPasswordReset(h.background, "nobody@veyra.app")
	require.NoError(t, err)
	assert.Empty(t, token)
}
