package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHome = "/"

	// Login & onboarding pages (served by the static shell)
	RouteLogin        = "/login"
	RouteLoginPending = "/login/pending"
	RouteIdentity     = "/identity"
	RouteLogout       = "/logout"

	// Backend redirect handshake
	RouteCallback = "/oauth/callback"

	// Provider sign-in
	RouteAPIAuthSignIn   = "/api/auth/signin/{provider}"
	RouteAPIAuthCallback = "/api/auth/callback/{provider}"

	// Session API
	RouteAPIAuthPrefix  = "/api/auth/"
	RouteAPIAuthSession = "/api/auth/session"
	RouteAPIAuthMe      = "/api/auth/me"
	RouteAPIAuthSignOut = "/api/auth/signout"
	RouteAPIAuthSignup  = "/api/auth/signup"
	RouteAPINav         = "/api/nav"

	// Backend proxy
	RouteAPIBackendPrefix = "/api/v1/"

	// Operations
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Static asset prefixes of the console build
	RouteStaticNext = "/_next/"
	RouteStaticImg  = "/images/"
	RouteFavicon    = "/favicon.ico"
)

// LoginSessionExpired is the login location after a failed token refresh.
const LoginSessionExpired = RouteLogin + "?error=session_expired"
