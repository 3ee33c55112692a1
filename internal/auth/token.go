// Package auth issues and verifies the bearer tokens that identify a ledger owner.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// CookieName is the cookie checked when no Authorization header is sent.
const CookieName = "token"

// Claims are the registered claims; Subject carries the owner id.
type Claims struct {
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 owner tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) (*Tokens, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for owner.
func (t *Tokens) Issue(owner core.OwnerID) (string, error) {
	if owner.IsZero() {
		return "", core.ErrInvalidOwner
	}
	now := t.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   owner.String(),
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry and returns the owner.
func (t *Tokens) Verify(raw string) (core.OwnerID, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", &core.AuthorizationError{Reason: tokenReason(err)}
	}
	owner, err := core.ParseOwnerID(claims.Subject)
	if err != nil {
		return "", &core.AuthorizationError{Reason: "token subject is not an owner id"}
	}
	return owner, nil
}

func tokenReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid token signature"
	default:
		return "invalid token"
	}
}

type ownerKey struct{}

// WithOwner stores the authenticated owner in ctx.
func WithOwner(ctx context.Context, owner core.OwnerID) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the authenticated owner, or an AuthorizationError.
func OwnerFromContext(ctx context.Context) (core.OwnerID, error) {
	owner, ok := ctx.Value(ownerKey{}).(core.OwnerID)
	if !ok || owner.IsZero() {
		return "", &core.AuthorizationError{Reason: "not authenticated"}
	}
	return owner, nil
}

// TokenFromRequest reads a bearer token from the Authorization header or the token cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware authenticates every request and rejects anonymous ones through onFail.
func (t *Tokens) Middleware(onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				onFail(w, r, &core.AuthorizationError{Reason: "no token provided"})
				return
			}
			owner, err := t.Verify(raw)
			if err != nil {
				log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(), "Rejected bearer token",
					log.NewFields().WithErrorType(log.ErrorTypeAuth).WithError(err).ToSlice()...)
				onFail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}
