package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_AccessRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", 15*time.Minute, time.Hour)
	userID := uuid.New()

	token, err := m.GenerateAccess(userID, "admin")
	require.NoError(t, err)

	gotID, role, err := m.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "admin", role)
}

func TestTokenManager_AccessExpired(t *testing.T) {
	clock := newTestClock()
	m := NewTokenManager("secret", time.Minute, time.Hour)
	m.now = clock.Now

	token, err := m.GenerateAccess(uuid.New(), "user")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, _, err = m.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Minute, time.Hour)
	verifier := NewTokenManager("secret-b", time.Minute, time.Hour)

	token, err := issuer.GenerateAccess(uuid.New(), "user")
	require.NoError(t, err)

	_, _, err = verifier.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = m.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_InviteRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, 24*time.Hour)
	invitationID := uuid.New()
	inviterID := uuid.New()

	token, exp, err := m.IssueInvite(invitationID, inviterID, "Анна", "anna@example.com", "+15551234567")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp, 5*time.Second)

	claims, err := m.ParseInvite(token)
	require.NoError(t, err)
	id, err := claims.InvitationID()
	require.NoError(t, err)
	assert.Equal(t, invitationID, id)
	assert.Equal(t, inviterID.String(), claims.InviterID)
	assert.Equal(t, "+15551234567", claims.Phone)
}

func TestTokenManager_TokenTypesAreNotInterchangeable(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Hour)

	invite, _, err := m.IssueInvite(uuid.New(), uuid.New(), "Анна", "", "+15551234567")
	require.NoError(t, err)
	_, _, err = m.ParseAccess(invite)
	assert.ErrorIs(t, err, ErrInvalidToken, "токен приглашения не должен работать как access")

	access, err := m.GenerateAccess(uuid.New(), "user")
	require.NoError(t, err)
	_, err = m.ParseInvite(access)
	assert.ErrorIs(t, err, ErrInvalidToken, "access токен не должен работать как приглашение")
}

func TestTokenManager_InviteExpired(t *testing.T) {
	clock := newTestClock()
	m := NewTokenManager("secret", time.Minute, time.Hour)
	m.now = clock.Now

	token, _, err := m.IssueInvite(uuid.New(), uuid.New(), "Анна", "", "+15551234567")
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Minute)
	_, err = m.ParseInvite(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
