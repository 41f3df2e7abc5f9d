package domain

import "time"

// Role is the principal's role as carried in the token's user_type claim.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// ParseRole maps a user_type claim onto a Role. Anything that is not admin is standard.
func ParseRole(userType string) Role {
	if Role(userType) == RoleAdmin {
		return RoleAdmin
	}
	return RoleStandard
}

// Session is the decoded, locally cached representation of an authenticated user's credential.
// The JSON layout is the durable storage format.
type Session struct {
	Token     string `json:"token"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Subject   string `json:"id"`
	ExpiresAt int64  `json:"expirationTime"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// ExpiresWithin reports whether the session expires before now+margin.
// A session expiring exactly at now+margin is still usable.
func (s *Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return s.ExpiresAt < now.Add(margin).Unix()
}

// ExpiryTime returns the expiration as a time.Time.
func (s *Session) ExpiryTime() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// SignupInput is the registration payload.
type SignupInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
