package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/studio-gateway/apiclient"
	"github.com/jrsteele09/studio-gateway/events"
	"github.com/jrsteele09/studio-gateway/internal/config"
	"github.com/jrsteele09/studio-gateway/metrics"
	"github.com/jrsteele09/studio-gateway/server/authflowrepo"
	"github.com/jrsteele09/studio-gateway/sessions"
	"github.com/jrsteele09/studio-gateway/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Server is the browser-facing gateway in front of the studio backend.
type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	handler http.Handler
	routes  []string
	config  config.Config

	lifecycle  *sessions.Lifecycle
	cookies    *sessions.CookieCodec
	api        *apiclient.Client
	authFlows  authflowrepo.Repo
	dispatcher events.Dispatcher
	metrics    metrics.Recorder
	gatherer   prometheus.Gatherer
	limiter    *ipRateLimiter
	static     http.Handler

	providers       map[string]config.ProviderConfig
	providerClients map[string]*providerClient
	providerLock    sync.RWMutex

	now       func() time.Time
	afterFunc func(time.Duration, func())
}

type options struct {
	registry   *prometheus.Registry
	httpClient *http.Client
	now        func() time.Time
	afterFunc  func(time.Duration, func())
}

type Option func(*options)

// WithRegistry registers the gateway metrics on reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithBackendHTTPClient replaces the HTTP client used for backend calls.
func WithBackendHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithClock replaces the clock used by sessions and cookies.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithAfterFunc replaces the scheduler used for delayed sign-out.
func WithAfterFunc(f func(time.Duration, func())) Option {
	return func(o *options) {
		o.afterFunc = f
	}
}

func New(cfg config.Config, sessionRepo sessions.Repo, authFlowRepo authflowrepo.Repo, opts ...Option) (*Server, error) {
	o := options{
		now: time.Now,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	cookies, err := sessions.NewCookieCodec(cfg.GetSessionSecret(), cfg.GetSessionCookieName(), cfg.GetSessionMaxAge(), cfg.GetCookieSecure())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create cookie codec: %w", err)
	}

	collector := metrics.NewCollector(o.registry)
	dispatcher := events.NewInMemoryDispatcher()

	s := &Server{
		env:             cfg.GetEnv(),
		mux:             http.NewServeMux(),
		config:          cfg,
		cookies:         cookies.WithClock(o.now),
		authFlows:       authFlowRepo,
		dispatcher:      dispatcher,
		metrics:         collector,
		gatherer:        o.registry,
		limiter:         newIPRateLimiter(cfg.GetAuthRateLimit(), o.now),
		static:          newStaticHandler(cfg.GetStaticDir()),
		providers:       make(map[string]config.ProviderConfig),
		providerClients: make(map[string]*providerClient),
		now:             o.now,
		afterFunc:       o.afterFunc,
	}
	for _, p := range cfg.GetProviders() {
		s.providers[p.Name] = p
	}

	apiOpts := []apiclient.Option{
		apiclient.WithSessionSource(s),
		apiclient.WithDispatcher(dispatcher),
		apiclient.WithObserver(collector),
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, apiclient.WithHTTPClient(o.httpClient))
	}
	s.api = apiclient.New(cfg.GetAPIURL()+"/api/v1", cfg.GetBackendTimeout(), apiOpts...)

	cache := sessions.NewCache(cfg.GetSessionCacheTTL(), sessions.WithCacheClock(o.now))
	s.lifecycle = sessions.NewLifecycle(sessionRepo, cache,
		refresh.NewManager(s.api, cfg.GetDefaultTokenExpiry()),
		cfg.GetDefaultTokenExpiry(),
		sessions.WithClock(o.now),
		sessions.WithDispatcher(dispatcher),
		sessions.WithRefreshRecorder(collector),
		sessions.WithRefreshTimeout(cfg.GetBackendTimeout()),
	)

	s.subscribeAuthSignals()
	s.initRoutes()
	s.handler = ChainMiddleware(s.mux.ServeHTTP, s.GatewayMiddleware()...)
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Credentials implements apiclient.SessionSource for the session bound to ctx.
func (s *Server) Credentials(ctx context.Context) (apiclient.Credentials, error) {
	id := sessions.IDFromContext(ctx)
	session, err := s.lifecycle.Load(ctx, id)
	if err != nil {
		return apiclient.Credentials{SessionID: id}, err
	}
	return apiclient.Credentials{
		SessionID:      id,
		AccessToken:    session.BearerToken(),
		OrganizationID: session.OrganizationID,
	}, nil
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
