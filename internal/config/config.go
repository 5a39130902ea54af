package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	OAuthConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
	GetAPIURL() string
	GetStaticDir() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetBackendTimeout() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	OAuth
	Security
}

// New loads an optional .env file and returns the environment backed configuration.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
