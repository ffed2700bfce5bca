// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sec provides cryptographic primitives and token management.

It isolates security-sensitive code (Hashing, MAC signing, secret derivation)
from the domain logic. The [TokenService] acts as an Infrastructure service
injected into the Application layer.

# Token Model

Two symmetric-MAC (HS256) token kinds exist:

  - Access tokens are stateless, short-lived, and signed with a single
    server-wide secret. Possession proves recent authentication.
  - Refresh tokens are long-lived and signed with a per-identity secret
    derived from the identity's current password hash and a server-wide salt.
    Changing the password changes the secret, which instantly invalidates every
    refresh token issued before the change. That derivation is the system's
    only revocation mechanism — no deny-list, no session table scan.
*/
package sec

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/veyra/internal/platform/apperr"
	"github.com/taibuivan/veyra/pkg/uuid"
)

// AccessClaims represents the payload embedded inside an access token.
//
// # Why custom claims?
//
// By embedding the UserID and Roles directly inside the token, the
// authentication middleware can reconstruct the caller's identity WITHOUT
// querying the database on every request. The trade-off is that roles are
// only as fresh as the token's issuance time.
type AccessClaims struct {
	jwt.RegisteredClaims

	UserID string   `json:"id"`
	Roles  []string `json:"roles"`
}

// RefreshClaims represents the payload embedded inside a refresh token.
//
// The ClientID binds a stored refresh token to the client installation that
// performed the login; rotation requests from another client are rejected.
type RefreshClaims struct {
	jwt.RegisteredClaims

	UserID   string `json:"id"`
	ClientID string `json:"clientId"`
}

// TokenService signs and verifies the platform's HS256 tokens.
//
// # Concurrency
//
// All fields are set at construction and never mutated, so a single instance
// is safe for concurrent use across requests.
type TokenService struct {
	accessSecret []byte
	refreshSalt  []byte
	issuer       string
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

// NewTokenService constructs a [TokenService] from explicit configuration.
//
// Secrets and TTLs are passed in here rather than read from ambient globals,
// so tests can construct isolated instances with short TTLs.
func NewTokenService(accessSecret, refreshSalt, issuer string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret: []byte(accessSecret),
		refreshSalt:  []byte(refreshSalt),
		issuer:       issuer,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

// AccessTTL returns the configured access-token lifetime.
func (service *TokenService) AccessTTL() time.Duration {
	return service.accessTTL
}

// # Access Tokens

// GenerateAccessToken creates a signed access token for the given identity.
//
// Each token carries a unique jti: IssuedAt has second granularity, so without
// it two issuances for the same identity inside one second would sign
// byte-identical payloads.
func (service *TokenService) GenerateAccessToken(userID string, roles []string) (string, error) {
	currentTime := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.accessTTL)),
		},
		UserID: userID,
		Roles:  roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// VerifyAccessToken checks the MAC and expiry of an access token string.
//
// Expiry is enforced here, at verification time — a token signed long ago with
// a past ExpiresAt fails with [apperr.TokenExpired].
func (service *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := service.verify(tokenString, claims, service.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeAccessUnverified extracts access claims WITHOUT checking the signature
// or the expiry window.
//
// The rotation flow uses this to recover the subject id from an access token
// that may already be expired — rotation exists specifically to service
// expired access tokens. NOTE: the decoded claims are attacker-controlled
// until the stored refresh token has been verified against the per-identity
// secret; callers must not trust them for anything but the store lookup.
// A signature check (ignoring only expiry) would close that gap and should be
// added before this endpoint faces hostile traffic.
func (service *TokenService) DecodeAccessUnverified(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, apperr.TokenMalformed()
	}
	return claims, nil
}

// # Refresh Tokens

// GenerateRefreshToken creates a refresh token signed with the per-identity
// secret derived from the given password hash.
//
// The unique jti guarantees rotation always stores a token distinct from the
// one it supersedes, even when both are minted within the same second.
func (service *TokenService) GenerateRefreshToken(userID, clientID, passwordHash string) (string, error) {
	currentTime := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.refreshTTL)),
		},
		UserID:   userID,
		ClientID: clientID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.refreshSecret(passwordHash))
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return signedToken, nil
}

// VerifyRefreshToken checks a refresh token against the per-identity secret
// recomputed from the identity's CURRENT password hash.
//
// A token issued before a password change verifies against a different secret
// and fails with [apperr.TokenMalformed] — revocation by construction.
func (service *TokenService) VerifyRefreshToken(tokenString, passwordHash string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := service.verify(tokenString, claims, service.refreshSecret(passwordHash)); err != nil {
		return nil, err
	}
	return claims, nil
}

// refreshSecret derives the per-identity refresh signing key.
//
// HMAC-SHA256(salt, passwordHash) is a one-way combination: neither the salt
// nor the hash can be recovered from the derived key, and any change to the
// password hash yields an unrelated key.
func (service *TokenService) refreshSecret(passwordHash string) []byte {
	mac := hmac.New(sha256.New, service.refreshSalt)
	mac.Write([]byte(passwordHash))
	return mac.Sum(nil)
}

// # Shared Verification

// verify parses and validates a token with the given secret, mapping library
// errors onto the platform taxonomy.
func (service *TokenService) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithIssuer(service.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return apperr.TokenExpired()
		}
		return apperr.TokenMalformed()
	}

	if !token.Valid {
		return apperr.TokenMalformed()
	}

	return nil
}
