package config

import "time"

type SessionConfig interface {
	GetSessionSecret() string
	GetSessionCookieName() string
	GetSessionMaxAge() time.Duration
	GetSessionCacheTTL() time.Duration
	GetDefaultTokenExpiry() time.Duration
	GetForbiddenSignOutDelay() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", GetEnv("NEXTAUTH_SECRET", ""))
}

func (Session) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE_NAME", "studio_session")
}

func (Session) GetSessionMaxAge() time.Duration {
	return GetEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour)
}

// GetSessionCacheTTL bounds how long a loaded session is reused across requests.
func (Session) GetSessionCacheTTL() time.Duration {
	return GetEnvDuration("SESSION_CACHE_TTL", 1*time.Second)
}

// GetDefaultTokenExpiry is used when an access token carries no readable exp claim.
func (Session) GetDefaultTokenExpiry() time.Duration {
	return GetEnvDuration("TOKEN_DEFAULT_EXPIRY", 1*time.Hour)
}

func (Session) GetForbiddenSignOutDelay() time.Duration {
	return GetEnvDuration("FORBIDDEN_SIGNOUT_DELAY", 1500*time.Millisecond)
}
