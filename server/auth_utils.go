package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/studio-gateway/internal/config"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// redirectResponse tells the console where to navigate after an auth failure.
type redirectResponse struct {
	Error           string `json:"error,omitempty"`
	Message         string `json:"message,omitempty"`
	Notification    string `json:"notification,omitempty"`
	Redirect        string `json:"redirect,omitempty"`
	RedirectAfterMs int64  `json:"redirectAfterMs,omitempty"`
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, redirectResponse{Error: code, Message: message})
}

// requestSessionID returns the verified session id of the cookie, or "".
func (s *Server) requestSessionID(r *http.Request) string {
	id, err := s.cookies.SessionID(r)
	if err != nil {
		return ""
	}
	return id
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string) error {
	cookie, err := s.cookies.Encode(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, cookie)
	return nil
}

// safeReturnURL keeps only same-origin absolute paths.
func safeReturnURL(returnURL string) string {
	if returnURL == "" || !strings.HasPrefix(returnURL, "/") || strings.HasPrefix(returnURL, "//") || strings.HasPrefix(returnURL, "/\\") {
		return RouteHome
	}
	return returnURL
}

// providerClient is the OAuth2 configuration of one provider. verifier is nil for providers
// without OIDC discovery.
type providerClient struct {
	oauth2   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func (s *Server) redirectURL(provider string) string {
	return s.config.GetBaseURL() + strings.Replace(RouteAPIAuthCallback, "{provider}", provider, 1)
}

// getProviderClient builds and caches the provider configuration, running OIDC discovery on first
// use for providers with an issuer.
func (s *Server) getProviderClient(ctx context.Context, name string) (*providerClient, error) {
	s.providerLock.RLock()
	client, exists := s.providerClients[name]
	s.providerLock.RUnlock()
	if exists {
		return client, nil
	}

	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownProvider, name)
	}

	client = &providerClient{
		oauth2: &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  s.redirectURL(name),
			Scopes:       p.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  p.AuthURL,
				TokenURL: p.TokenURL,
			},
		},
	}
	if p.Issuer != "" {
		if err := discoverProvider(ctx, client, p); err != nil {
			return nil, err
		}
	}

	s.providerLock.Lock()
	s.providerClients[name] = client
	s.providerLock.Unlock()

	return client, nil
}

func discoverProvider(ctx context.Context, client *providerClient, p config.ProviderConfig) error {
	provider, err := oidc.NewProvider(ctx, p.Issuer)
	if err != nil {
		return fmt.Errorf("failed to create OIDC provider for %s: %w", p.Name, err)
	}
	client.oauth2.Endpoint = provider.Endpoint()
	client.verifier = provider.Verifier(&oidc.Config{ClientID: p.ClientID})
	return nil
}
