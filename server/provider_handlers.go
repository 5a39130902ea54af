package server

import (
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/studio-gateway/apiclient"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/metrics"
	"github.com/jrsteele09/studio-gateway/server/authflowrepo"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ProviderSignInHandler starts an authorization code flow with PKCE at the provider
// (GET /api/auth/signin/{provider}).
func (s *Server) ProviderSignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("provider")
		client, err := s.getProviderClient(r.Context(), name)
		if apperrors.Is(err, apperrors.ErrUnknownProvider) {
			writeJSONError(w, http.StatusNotFound, "unknown_provider", err.Error())
			return
		}
		if err != nil {
			log.Err(err).Str("provider", name).Msg("provider configuration failed")
			writeJSONError(w, http.StatusBadGateway, "provider_unavailable", "sign-in provider is unavailable")
			return
		}

		state := generateRandomString(32)
		flow := &authflowrepo.AuthFlowState{
			Provider:     name,
			CodeVerifier: oauth2.GenerateVerifier(),
			Nonce:        generateRandomString(16),
			ReturnURL:    safeReturnURL(r.URL.Query().Get("returnUrl")),
			CreatedAt:    s.now(),
		}
		if err := s.authFlows.Upsert(r.Context(), state, flow); err != nil {
			log.Err(err).Msg("failed to store auth flow state")
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "could not start sign-in")
			return
		}

		opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(flow.CodeVerifier)}
		if client.verifier != nil {
			opts = append(opts, oidc.Nonce(flow.Nonce))
		}
		http.Redirect(w, r, client.oauth2.AuthCodeURL(state, opts...), http.StatusFound)
	}
}

// ProviderCallbackHandler exchanges the provider's authorization code and hands the provider
// credential to the backend login exchange (GET /api/auth/callback/{provider}).
func (s *Server) ProviderCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("provider")
		q := r.URL.Query()

		// Check for authorization errors
		if errorParam := q.Get("error"); errorParam != "" {
			log.Warn().Str("provider", name).Str("error", errorParam).Str("description", q.Get("error_description")).Msg("provider denied authorization")
			http.Redirect(w, r, RouteLogin+"?error="+url.QueryEscape(errorParam), http.StatusSeeOther)
			return
		}

		state := q.Get("state")
		code := q.Get("code")
		if code == "" || state == "" {
			s.metrics.RecordHandshake(metrics.HandshakeInvalid)
			s.renderHandshakeError(w, http.StatusBadRequest, "Missing code or state parameter.")
			return
		}

		// Consumed on first use, whatever happens next.
		flow, err := s.authFlows.Take(r.Context(), state)
		if err != nil {
			if !apperrors.Is(err, apperrors.ErrInvalidState) {
				log.Err(err).Msg("failed to load auth flow state")
			}
			s.metrics.RecordHandshake(metrics.HandshakeInvalid)
			s.renderHandshakeError(w, http.StatusBadRequest, "The sign-in attempt is unknown or has expired.")
			return
		}
		if flow.Provider != name || flow.Expired(s.now(), s.config.GetAuthFlowTimeout()) {
			s.metrics.RecordHandshake(metrics.HandshakeInvalid)
			s.renderHandshakeError(w, http.StatusBadRequest, "The sign-in attempt is unknown or has expired.")
			return
		}

		client, err := s.getProviderClient(r.Context(), name)
		if err != nil {
			log.Err(err).Str("provider", name).Msg("provider configuration failed")
			s.renderHandshakeError(w, http.StatusBadGateway, "The sign-in provider is unavailable.")
			return
		}

		providerToken, err := client.oauth2.Exchange(r.Context(), code, oauth2.VerifierOption(flow.CodeVerifier))
		if err != nil {
			log.Err(err).Str("provider", name).Msg("token exchange failed")
			s.renderHandshakeError(w, http.StatusBadGateway, "The sign-in provider rejected the request.")
			return
		}

		rawIDToken, _ := providerToken.Extra("id_token").(string)
		if client.verifier != nil {
			if err := verifyIDToken(r, client.verifier, rawIDToken, flow.Nonce); err != nil {
				log.Err(err).Str("provider", name).Msg("ID token verification failed")
				s.renderHandshakeError(w, http.StatusUnauthorized, "The sign-in response could not be verified.")
				return
			}
		}

		outcome, err := s.api.ExchangeOAuthLogin(r.Context(), name, apiclient.OAuthLoginRequest{
			AccessToken: providerToken.AccessToken,
			IDToken:     rawIDToken,
		})
		if err != nil {
			log.Err(err).Str("provider", name).Msg("backend login exchange failed")
			s.metrics.RecordHandshake(metrics.HandshakeInvalid)
			s.renderHandshakeError(w, http.StatusBadGateway, "Sign-in could not be completed. Please try again.")
			return
		}

		s.completeHandshake(w, r, outcome, flow.ReturnURL)
	}
}

// verifyIDToken checks the signature, audience and nonce of an ID token.
func verifyIDToken(r *http.Request, verifier *oidc.IDTokenVerifier, rawIDToken, nonce string) error {
	if rawIDToken == "" {
		return apperrors.ErrMalformedToken
	}
	idToken, err := verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		return err
	}
	// Validate nonce to prevent replay attacks
	if idToken.Nonce != nonce {
		return apperrors.ErrInvalidState
	}
	return nil
}
