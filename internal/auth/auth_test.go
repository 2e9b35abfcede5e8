// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastnoteapp/backend/internal/apperr"
)

func TestIssueAndVerifyAccessToken(t *testing.T) {
	iss := NewIssuer("super-secret")
	tenant := uuid.New()

	tokens, err := iss.IssueTokens(tenant)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)

	got, err := iss.VerifyAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tenant, got)
}

func TestVerifyAccessTokenRejectsRefreshToken(t *testing.T) {
	iss := NewIssuer("super-secret")
	tenant := uuid.New()
	tokens, err := iss.IssueTokens(tenant)
	require.NoError(t, err)

	_, err = iss.VerifyAccessToken(tokens.RefreshToken)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestVerifyAccessTokenRejectsWrongSecret(t *testing.T) {
	issA := NewIssuer("secret-a")
	issB := NewIssuer("secret-b")
	tenant := uuid.New()

	tokens, err := issA.IssueTokens(tenant)
	require.NoError(t, err)

	_, err = issB.VerifyAccessToken(tokens.AccessToken)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestVerifyAccessTokenRejectsExpiredToken(t *testing.T) {
	iss := NewIssuer("super-secret")
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Kind: "access",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(iss.secret)
	require.NoError(t, err)

	_, err = iss.VerifyAccessToken(signed)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestVerifyAccessTokenRejectsMalformedString(t *testing.T) {
	iss := NewIssuer("super-secret")
	_, err := iss.VerifyAccessToken("not.a.jwt")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestVerifyAccessTokenRejectsUnexpectedSigningMethod(t *testing.T) {
	iss := NewIssuer("super-secret")
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Kind: "access",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, c)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.VerifyAccessToken(signed)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, VerifyPassword(hash, "correct horse battery staple"))
	assert.False(t, VerifyPassword(hash, "wrong password"))
}
