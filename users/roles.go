package users

import (
	"strings"

	"github.com/jrsteele09/studio-gateway/internal/utils"
)

// RoleType is the studio role of an account. An account that has not finished registration has
// no role at all, which callers model as a nil *RoleType.
type RoleType string

const (
	RoleOwner       RoleType = "OWNER"        // Runs a center, approves instructors and members
	RoleInstructor  RoleType = "INSTRUCTOR"   // Teaches classes at one or more centers
	RoleMember      RoleType = "MEMBER"       // Holds tickets and books classes
	RoleSystemAdmin RoleType = "SYSTEM_ADMIN" // Operates the platform, approves centers
)

// Roles lists every defined role.
var Roles = []RoleType{RoleOwner, RoleInstructor, RoleMember, RoleSystemAdmin}

func (r RoleType) Valid() bool {
	switch r {
	case RoleOwner, RoleInstructor, RoleMember, RoleSystemAdmin:
		return true
	}
	return false
}

func (r RoleType) String() string {
	return string(r)
}

// ParseRole normalises a role claim. Empty or unknown values return nil.
func ParseRole(s string) *RoleType {
	r := RoleType(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return nil
	}
	return utils.Ptr(r)
}
