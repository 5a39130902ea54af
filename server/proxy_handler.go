package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/studio-gateway/apiclient"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	maxProxyBodyBytes = 10 << 20

	forbiddenNotification = "You do not have permission to perform this action."
)

// forwardedHeaders are copied from the browser request to the backend.
var forwardedHeaders = []string{"Content-Type", "Accept", "Accept-Language", "If-None-Match"}

// ProxyHandler forwards /api/v1/* to the backend with the session's credentials.
func (s *Server) ProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, strings.TrimSuffix(RouteAPIBackendPrefix, "/"))
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		header := http.Header{}
		for _, name := range forwardedHeaders {
			if v := r.Header.Get(name); v != "" {
				header.Set(name, v)
			}
		}

		var body io.Reader
		if r.Body != nil && r.ContentLength != 0 {
			body = http.MaxBytesReader(w, r.Body, maxProxyBodyBytes)
		}

		resp, err := s.api.Send(r.Context(), r.Method, path, body, apiclient.WithHeaders(header))
		if err != nil && resp == nil {
			s.writeBackendError(w, err)
			return
		}
		switch resp.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			s.writeBackendError(w, err)
			return
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		if etag := resp.Header.Get("ETag"); etag != "" {
			w.Header().Set("ETag", etag)
		}
		w.WriteHeader(resp.Status)
		if _, err := w.Write(resp.Body); err != nil {
			log.Err(err).Str("path", path).Msg("failed to write proxied response")
		}
	}
}

// writeBackendError maps a failed backend call to the console's JSON contract. A 401 clears the
// cookie and redirects at once; a 403 notifies first and redirects after the sign-out delay.
func (s *Server) writeBackendError(w http.ResponseWriter, err error) {
	var apiErr *apiclient.APIError
	if !apperrors.As(err, &apiErr) {
		writeJSONError(w, http.StatusBadGateway, "backend_unavailable", "the studio service is unavailable")
		return
	}

	switch apiErr.Status {
	case http.StatusUnauthorized:
		http.SetCookie(w, s.cookies.Clear())
		writeJSON(w, http.StatusUnauthorized, redirectResponse{
			Error:    "unauthorized",
			Message:  apiErr.Message,
			Redirect: RouteLogin,
		})
	case http.StatusForbidden:
		writeJSON(w, http.StatusForbidden, redirectResponse{
			Error:           "forbidden",
			Message:         apiErr.Message,
			Notification:    forbiddenNotification,
			Redirect:        RouteLogin,
			RedirectAfterMs: s.config.GetForbiddenSignOutDelay().Milliseconds(),
		})
	default:
		code := apiErr.Code
		if code == "" {
			code = "backend_error"
		}
		status := apiErr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		writeJSONError(w, status, code, apiErr.Message)
	}
}
