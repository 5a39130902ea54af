package config

import "strings"

type SecurityConfig interface {
	GetAuthRateLimit() int
	GetCookieSecure() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAuthRateLimit is the number of auth endpoint requests allowed per client IP per minute.
func (Security) GetAuthRateLimit() int {
	return GetEnvInt("RATE_LIMIT_AUTH", 60)
}

func (Security) GetCookieSecure() bool {
	return strings.HasPrefix(EnvVars{}.GetBaseURL(), "https://")
}
