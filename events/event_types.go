package events

import "time"

// EventType identifies an authentication signal raised by the HTTP layer or the session layer.
type EventType string

const (
	// EventUnauthorized is raised when the backend rejects a call with 401.
	EventUnauthorized EventType = "auth.unauthorized"
	// EventForbidden is raised when the backend rejects a call with 403.
	EventForbidden EventType = "auth.forbidden"
	// EventRefreshFailed is raised when the session could not be reissued.
	EventRefreshFailed EventType = "session.refresh_failed"
	// EventSignedOut is raised after an explicit sign-out.
	EventSignedOut EventType = "session.signed_out"
)

// Event is the payload published for every signal.
type Event struct {
	Type      EventType
	SessionID string
	Path      string
	Status    int
	At        time.Time
}
