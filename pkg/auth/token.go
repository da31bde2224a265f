package auth

import (
	"errors"
	"fmt"
	"time"

	"aptbook/pkg/model"

	"github.com/cristalhq/jwt/v4"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongType    = errors.New("wrong token type")
)

type Claims struct {
	jwt.RegisteredClaims
	Email     string         `json:"email"`
	UserType  model.UserType `json:"user_type"`
	TokenType string         `json:"token_type"`
}

type TokenManager struct {
	signer     jwt.Signer
	verifier   jwt.Verifier
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	key := []byte(secret)

	signer, err := jwt.NewSignerHS(jwt.HS256, key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	verifier, err := jwt.NewVerifierHS(jwt.HS256, key)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}

	return &TokenManager{
		signer:     signer,
		verifier:   verifier,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// IssuePair returns a fresh access and refresh token for user.
func (m *TokenManager) IssuePair(user *model.User) (*model.TokenPair, error) {
	now := m.now()

	access, err := m.issue(user, TokenTypeAccess, now, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.issue(user, TokenTypeRefresh, now, m.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(m.accessTTL).UTC(),
	}, nil
}

func (m *TokenManager) issue(user *model.User, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     user.Email,
		UserType:  user.UserType,
		TokenType: tokenType,
	}

	token, err := jwt.NewBuilder(m.signer).Build(claims)
	if err != nil {
		return "", fmt.Errorf("build %s token: %w", tokenType, err)
	}
	return token.String(), nil
}

// Parse verifies raw and returns its claims if it is a live token of tokenType.
func (m *TokenManager) Parse(raw, tokenType string) (*Claims, error) {
	var claims Claims
	if err := jwt.ParseClaims([]byte(raw), m.verifier, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.IsIssuer(m.issuer) || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if !claims.IsValidAt(m.now()) {
		return nil, ErrExpiredToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongType
	}
	return &claims, nil
}
