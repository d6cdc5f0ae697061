package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const inviteTokenType = "invite"

// ErrInvalidToken возвращается, если токен не прошёл проверку.
var ErrInvalidToken = errors.New("invalid token")

// InviteClaims содержит данные токена приглашения. В Subject лежит id приглашения.
type InviteClaims struct {
	Type      string `json:"type"`
	InviterID string `json:"inviter_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// InvitationID возвращает id приглашения из Subject.
func (c *InviteClaims) InvitationID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenManager отвечает за проверку access токенов и выпуск токенов приглашений.
// Access токены выпускает сервис авторизации с тем же секретом.
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
	inviteTTL time.Duration
	now       func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(secret string, accessTTL, inviteTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		inviteTTL: inviteTTL,
		now:       time.Now,
	}
}

// GenerateAccess выпускает access токен (используется в тестах и служебных утилитах).
func (m *TokenManager) GenerateAccess(userID uuid.UUID, role string) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(m.accessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAccess извлекает userID и роль из access токена.
func (m *TokenManager) ParseAccess(token string) (uuid.UUID, string, error) {
	parsed, err := jwt.Parse(token, m.keyFunc, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	if typ, _ := claims["type"].(string); typ == inviteTokenType {
		return uuid.Nil, "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	role, _ := claims["role"].(string)

	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", err
	}

	return userID, role, nil
}

// IssueInvite выпускает токен приглашения со сроком inviteTTL.
func (m *TokenManager) IssueInvite(invitationID, inviterID uuid.UUID, name, email, phone string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.inviteTTL)

	claims := InviteClaims{
		Type:      inviteTokenType,
		InviterID: inviterID.String(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   invitationID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ParseInvite проверяет токен приглашения.
func (m *TokenManager) ParseInvite(token string) (*InviteClaims, error) {
	claims := &InviteClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, m.keyFunc, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid || claims.Type != inviteTokenType {
		return nil, ErrInvalidToken
	}
	if _, err := claims.InvitationID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *TokenManager) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return m.secret, nil
}
