// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package auth issues and verifies the bearer credentials the API surface
// and realtime upgrade both authenticate against, and hashes/verifies
// account passwords. JWT handling and password hashing are explicitly
// out of scope for the core synchronization engine per spec.md §1 ("out
// of scope... password hashing, JWT issuance/parsing"); this package is
// the thin external collaborator the pipeline's authorize step calls.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastnoteapp/backend/internal/apperr"
)

// TokenPair is returned by register and login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// claims carries the subject (tenant/user id) and token kind.
type claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

// Issuer issues and verifies HS256 JWTs signed with a shared secret.
type Issuer struct {
	secret []byte
}

// NewIssuer constructs an Issuer around the configured JWT_SECRET.
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// IssueTokens mints a fresh access/refresh pair for tenant.
func (iss *Issuer) IssueTokens(tenant uuid.UUID) (TokenPair, error) {
	access, err := iss.sign(tenant, "access", accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := iss.sign(tenant, "refresh", refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (iss *Issuer) sign(tenant uuid.UUID, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenant.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(iss.secret)
}

// VerifyAccessToken parses and validates an access token, returning its
// subject tenant id. Any failure — malformed, expired, wrong kind, bad
// signature — surfaces as apperr.Unauthorized, never a parse error the
// caller would need to interpret.
func (iss *Issuer) VerifyAccessToken(tokenString string) (uuid.UUID, error) {
	return iss.verify(tokenString, "access")
}

func (iss *Issuer) verify(tokenString, wantKind string) (uuid.UUID, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.NewUnauthorized("unexpected signing method")
		}
		return iss.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, apperr.NewUnauthorized("invalid or expired token")
	}
	if c.Kind != wantKind {
		return uuid.Nil, apperr.NewUnauthorized("wrong token kind")
	}
	tenant, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, apperr.NewUnauthorized("invalid token subject")
	}
	return tenant, nil
}

// HashPassword bcrypt-hashes a plaintext password at the default cost.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.NewInternal("failed to hash password", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash.
func VerifyPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
