package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	baseURLVar    = "BASE_URL"
	apiURLVar     = "API_URL"
	staticDirVar  = "STATIC_DIR"
	logLevelVar   = "LOG_LEVEL"
	redisAddrVar  = "REDIS_ADDR"
	backendTOVar  = "BACKEND_TIMEOUT"
	redisDBVar    = "REDIS_DB"
	redisPassVar  = "REDIS_PASSWORD"
	publicAPIVar  = "NEXT_PUBLIC_API_URL"
	defaultAPIURL = "http://localhost:8081"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Studio Gateway")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetBaseURL returns the public URL of the gateway (e.g., "https://studio.example.com").
// Used for provider redirect URIs and the cookie Secure flag.
func (EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

// GetAPIURL returns the backend origin. NEXT_PUBLIC_API_URL is honoured so the gateway can
// share an env file with the web front end.
func (EnvVars) GetAPIURL() string {
	return strings.TrimRight(GetEnv(apiURLVar, GetEnv(publicAPIVar, defaultAPIURL)), "/")
}

func (EnvVars) GetStaticDir() string {
	return GetEnv(staticDirVar, "./web")
}

func (EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

func (EnvVars) GetRedisPassword() string {
	return GetEnv(redisPassVar, "")
}

func (EnvVars) GetRedisDB() int {
	return GetEnvInt(redisDBVar, 0)
}

func (EnvVars) GetBackendTimeout() time.Duration {
	return GetEnvDuration(backendTOVar, 15*time.Second)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	v := os.Getenv(envVar)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(envVar)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
