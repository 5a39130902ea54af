package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/internal/tsid"
)

// Claims is the subset of backend access token claims the gateway reads.
// Signatures are not verified here: the backend is the only party that trusts the token,
// the gateway only needs its expiry and routing hints.
type Claims struct {
	Subject        string
	Role           string
	OrganizationID tsid.ID
	ExpiresAt      time.Time // Zero when the token has no exp claim
}

// Decode reads the payload segment of a JWT. Any failure is reported as ErrMalformedToken.
func Decode(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("empty token: %w", apperrors.ErrMalformedToken)
	}

	// JSON numbers keep large organization ids exact.
	parsed, _, err := jwtlib.NewParser(jwtlib.WithJSONNumber()).ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("error extracting claims: %w", apperrors.ErrMalformedToken)
	}

	c := &Claims{}
	c.Subject, _ = claims.GetSubject()
	c.Role, _ = claims["role"].(string)
	c.OrganizationID = claimID(claims["organizationId"])

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// ExpiresAt returns the exp claim of rawToken, or now+fallback when the token cannot be
// decoded or carries no expiry. It never fails.
func ExpiresAt(rawToken string, now time.Time, fallback time.Duration) time.Time {
	claims, err := Decode(rawToken)
	if err != nil || claims.ExpiresAt.IsZero() {
		return now.Add(fallback)
	}
	return claims.ExpiresAt
}

func claimID(v any) tsid.ID {
	switch id := v.(type) {
	case string:
		return tsid.ID(id)
	case fmt.Stringer: // json.Number
		return tsid.ID(id.String())
	default:
		return ""
	}
}
