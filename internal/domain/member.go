package domain

import "strings"

// Role is a workspace member's role. Matching is case-sensitive.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleLeader Role = "leader"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// LeaderRoles are the roles notified by a list's "notify leaders" flag.
var LeaderRoles = []Role{RoleAdmin, RoleLeader}

// IsLeader reports whether r is one of LeaderRoles.
func (r Role) IsLeader() bool {
	switch r {
	case RoleAdmin, RoleLeader:
		return true
	}
	return false
}

// MemberStatus is the lifecycle state of a workspace membership.
type MemberStatus string

const (
	MemberInvited MemberStatus = "invited"
	MemberActive  MemberStatus = "active"
	MemberRemoved MemberStatus = "removed"
	MemberPaused  MemberStatus = "paused"
)

// Member is a workspace membership row as seen by recipient resolution.
// UserID is nil for invitations that have not been accepted yet.
type Member struct {
	UserID *string `json:"user_id,omitempty"`
	Email  string  `json:"email"`
	Role   Role    `json:"role"`
}

// User is the subset of an account the pipeline needs for display names.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DisplayName returns the trimmed name, then the email, then AnonymousMover.
// A nil user also yields AnonymousMover.
func (u *User) DisplayName() string {
	if u == nil {
		return AnonymousMover
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return AnonymousMover
}
