// Package auth authenticates admin principals and issues signed session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/bookwish-storefront/pkg/apperr"
)

var ErrInvalidCredentials = apperr.Unauthorized("Invalid username or password")
var ErrUnauthorized = apperr.Unauthorized("Unauthorized")

const issuer = "bookwish-admin"

// ParsePrincipals reads "user:bcrypt-hash" pairs separated by commas.
func ParsePrincipals(raw string) (map[string][]byte, error) {
	out := map[string][]byte{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, hash, ok := strings.Cut(pair, ":")
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("malformed admin credential %q", user)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin %q: %w", user, err)
		}
		out[user] = []byte(hash)
	}
	return out, nil
}

type Authenticator struct {
	principals map[string][]byte
	secret     []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewAuthenticator(principals map[string][]byte, secret string, ttl time.Duration) (*Authenticator, error) {
	if len(secret) < 16 {
		return nil, errors.New("admin token secret must be at least 16 bytes")
	}
	return &Authenticator{principals: principals, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Login checks the password and returns a signed token with its expiry.
func (a *Authenticator) Login(username, password string) (string, time.Time, error) {
	hash, ok := a.principals[username]
	if !ok {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify returns the principal named by a valid token.
func (a *Authenticator) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", ErrUnauthorized
	}
	if _, ok := a.principals[claims.Subject]; !ok {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKey{}, name)
}

func Principal(ctx context.Context) string {
	name, _ := ctx.Value(ctxKey{}).(string)
	return name
}
