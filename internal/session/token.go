package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bilancio/internal/core"
)

// Claims is the signed content of the session cookie. Subject is the principal id and
// is empty for a session nobody has signed into yet.
type Claims struct {
	SessionID string `json:"sid"`
	Name      string `json:"name,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies session cookies with HS256.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: secret, ttl: ttl, now: time.Now}
}

// TTL is how long an encoded token stays valid.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

func (c *TokenCodec) Encode(sessionID string, p core.Principal) (string, error) {
	now := c.now()
	claims := Claims{
		SessionID: sessionID,
		Name:      p.Name,
		Avatar:    p.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the session id and principal.
func (c *TokenCodec) Decode(token string) (string, core.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", core.Principal{}, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.SessionID == "" {
		return "", core.Principal{}, errors.New("invalid session token: missing session id")
	}
	return claims.SessionID, core.Principal{ID: claims.Subject, Name: claims.Name, AvatarURL: claims.Avatar}, nil
}
