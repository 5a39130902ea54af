package users

import (
	"github.com/jrsteele09/studio-gateway/internal/tsid"
)

// MembershipStatus is the approval state of a user's association with one center.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "PENDING"
	MembershipApproved MembershipStatus = "APPROVED"
	MembershipRejected MembershipStatus = "REJECTED"
)

type Membership struct {
	OrganizationID   tsid.ID          `json:"organizationId"`
	OrganizationName string           `json:"organizationName,omitempty"`
	Status           MembershipStatus `json:"status,omitempty"`
}

// User is the profile returned by the backend's /users/me endpoint. It is a view model:
// nothing here is authoritative for authorization, the access token is.
type User struct {
	ID             tsid.ID      `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone,omitempty"`
	Role           *RoleType    `json:"role"`
	OrganizationID tsid.ID      `json:"organizationId"`
	ProfileImage   string       `json:"profileImage,omitempty"`
	Memberships    []Membership `json:"memberships,omitempty"`
}

// AuthState derives the authentication state of a freshly fetched profile.
func (u *User) AuthState() AuthState {
	if u == nil {
		return LoggedOut{}
	}
	return ResolveAuthState(true, u.Role, u.OrganizationID)
}

// PendingOrganizationIDs returns the centers whose membership still awaits approval.
func (u *User) PendingOrganizationIDs() []tsid.ID {
	if u == nil {
		return nil
	}
	var ids []tsid.ID
	for _, m := range u.Memberships {
		if m.Status == MembershipPending {
			ids = append(ids, m.OrganizationID)
		}
	}
	return tsid.Dedupe(ids)
}
