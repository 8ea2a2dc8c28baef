package domain

import "time"

// Role enumerates access levels for accounts.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role can see every ticket.
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleAdmin
}

// User is an account that submits or handles tickets.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Skills       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasAnySkill reports whether the user holds at least one of skills.
// Comparison is case-insensitive.
func (u *User) HasAnySkill(skills []string) bool {
	if u == nil || len(skills) == 0 {
		return false
	}
	own := make(map[string]struct{}, len(u.Skills))
	for _, s := range u.Skills {
		own[NormalizeSkill(s)] = struct{}{}
	}
	for _, s := range skills {
		if _, ok := own[NormalizeSkill(s)]; ok {
			return true
		}
	}
	return false
}
