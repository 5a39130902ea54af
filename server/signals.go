package server

import (
	"context"

	"github.com/jrsteele09/studio-gateway/events"
	"github.com/rs/zerolog/log"
)

// subscribeAuthSignals installs the one owner of sign-out for backend auth failures. Unauthorized
// signs out at once; forbidden signs out after the notification delay.
func (s *Server) subscribeAuthSignals() {
	s.dispatcher.Subscribe(events.EventUnauthorized, func(ctx context.Context, e events.Event) error {
		s.metrics.RecordAuthSignal(string(e.Type))
		if e.SessionID == "" {
			return nil
		}
		log.Info().Str("session", e.SessionID).Str("path", e.Path).Msg("backend rejected session, signing out")
		return s.lifecycle.SignOut(context.WithoutCancel(ctx), e.SessionID)
	})

	s.dispatcher.Subscribe(events.EventForbidden, func(_ context.Context, e events.Event) error {
		s.metrics.RecordAuthSignal(string(e.Type))
		if e.SessionID == "" {
			return nil
		}
		sessionID := e.SessionID
		delay := s.config.GetForbiddenSignOutDelay()
		log.Info().Str("session", sessionID).Str("path", e.Path).Dur("delay", delay).Msg("permission denied, scheduling sign-out")
		s.afterFunc(delay, func() {
			if err := s.lifecycle.SignOut(context.Background(), sessionID); err != nil {
				log.Err(err).Str("session", sessionID).Msg("delayed sign-out failed")
			}
		})
		return nil
	})

	s.dispatcher.Subscribe(events.EventRefreshFailed, func(_ context.Context, e events.Event) error {
		s.metrics.RecordAuthSignal(string(e.Type))
		return nil
	})
}
