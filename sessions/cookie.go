package sessions

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"golang.org/x/crypto/hkdf"
)

const cookieKeyInfo = "studio-gateway session cookie v1"

// CookieCodec signs and verifies the session cookie. The cookie is a compact HS256 JWT whose
// jti is the session id; it carries no tokens.
type CookieCodec struct {
	name   string
	key    []byte
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

// NewCookieCodec derives the signing key from secret with HKDF-SHA256.
func NewCookieCodec(secret, name string, maxAge time.Duration, secure bool) (*CookieCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive cookie key: %w", err)
	}
	return &CookieCodec{
		name:   name,
		key:    key,
		maxAge: maxAge,
		secure: secure,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the codec using now for issue and expiry checks.
func (c *CookieCodec) WithClock(now func() time.Time) *CookieCodec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *CookieCodec) Name() string {
	return c.name
}

// Encode builds the cookie for sessionID.
func (c *CookieCodec) Encode(sessionID string) (*http.Cookie, error) {
	now := c.now()
	claims := jwtlib.RegisteredClaims{
		ID:        sessionID,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(c.maxAge)),
	}
	value, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Decode verifies a cookie value and returns the session id.
func (c *CookieCodec) Decode(value string) (string, error) {
	var claims jwtlib.RegisteredClaims
	_, err := jwtlib.ParseWithClaims(value, &claims,
		func(*jwtlib.Token) (interface{}, error) { return c.key, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrSessionNotFound, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("cookie has no session id: %w", apperrors.ErrSessionNotFound)
	}
	return claims.ID, nil
}

// SessionID reads and verifies the session cookie of r.
func (c *CookieCodec) SessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return "", apperrors.ErrSessionNotFound
	}
	return c.Decode(cookie.Value)
}

// Clear returns a cookie that removes the session cookie from the browser.
func (c *CookieCodec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
