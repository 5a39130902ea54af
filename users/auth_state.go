package users

import (
	"encoding/json"

	"github.com/jrsteele09/studio-gateway/internal/tsid"
)

type AuthStateKind string

const (
	KindLoggedOut  AuthStateKind = "logged_out"
	KindIncomplete AuthStateKind = "incomplete"
	KindComplete   AuthStateKind = "complete"
)

// AuthState is one of LoggedOut, AuthenticatedIncomplete or AuthenticatedComplete.
// Screens switch on the concrete type so the incomplete case cannot be skipped.
type AuthState interface {
	Kind() AuthStateKind
	authState()
}

type LoggedOut struct{}

// AuthenticatedIncomplete is a signed-in account without a center: mid-registration, awaiting
// approval, or with a role claim that arrived before the organization did.
type AuthenticatedIncomplete struct {
	Role *RoleType
}

type AuthenticatedComplete struct {
	Role           RoleType
	OrganizationID tsid.ID
}

func (LoggedOut) Kind() AuthStateKind               { return KindLoggedOut }
func (AuthenticatedIncomplete) Kind() AuthStateKind { return KindIncomplete }
func (AuthenticatedComplete) Kind() AuthStateKind   { return KindComplete }

func (LoggedOut) authState()               {}
func (AuthenticatedIncomplete) authState() {}
func (AuthenticatedComplete) authState()   {}

// ResolveAuthState builds the state from possibly partial session data. A system admin does not
// belong to a center and is complete without one.
func ResolveAuthState(authenticated bool, role *RoleType, organizationID tsid.ID) AuthState {
	if !authenticated {
		return LoggedOut{}
	}
	if role == nil {
		return AuthenticatedIncomplete{}
	}
	if *role == RoleSystemAdmin || !organizationID.IsZero() {
		return AuthenticatedComplete{Role: *role, OrganizationID: organizationID}
	}
	r := *role
	return AuthenticatedIncomplete{Role: &r}
}

type authStateJSON struct {
	Kind           AuthStateKind `json:"kind"`
	Role           *RoleType     `json:"role,omitempty"`
	OrganizationID tsid.ID       `json:"organizationId,omitempty"`
}

func (s LoggedOut) MarshalJSON() ([]byte, error) {
	return json.Marshal(authStateJSON{Kind: s.Kind()})
}

func (s AuthenticatedIncomplete) MarshalJSON() ([]byte, error) {
	return json.Marshal(authStateJSON{Kind: s.Kind(), Role: s.Role})
}

func (s AuthenticatedComplete) MarshalJSON() ([]byte, error) {
	r := s.Role
	return json.Marshal(authStateJSON{Kind: s.Kind(), Role: &r, OrganizationID: s.OrganizationID})
}
