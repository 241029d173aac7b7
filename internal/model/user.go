package model

import (
	"fmt"
	"strings"
)

// Role classifies a user's access level.
type Role string

// Known roles. The server only ever issues these two.
const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Opposite returns the other role of the client/admin pair.
func (r Role) Opposite() Role {
	if r == RoleAdmin {
		return RoleClient
	}
	return RoleAdmin
}

// UserID identifies a user in the directory.
type UserID string

// User is the directory record for one account. Balance is the server's
// authoritative point count; the client never derives it locally.
type User struct {
	ID       UserID `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     Role   `json:"role"`
	Balance  int    `json:"balance"`
}

// UserDetails is a single user's record with its embedded game history,
// as returned by the per-user lookup.
type UserDetails struct {
	User
	GameHistory []GameRecord `json:"gameHistory"`
}

// UserPatch is a partial set of user fields for shallow local merging.
// Nil fields are left untouched.
type UserPatch struct {
	Username *string
	Email    *string
	Phone    *string
	Role     *Role
	Balance  *int
}

// Apply merges the non-nil fields of the patch into the user.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Balance != nil {
		u.Balance = *p.Balance
	}
}

// MinPasswordLength is the minimum accepted password length for new accounts.
const MinPasswordLength = 6

// UserDraft is the transient, unvalidated mirror of user fields used when
// creating or editing an account. An empty password on an edit means
// "no change".
type UserDraft struct {
	Username string
	Email    string
	Phone    string
	Password string
	Role     Role
}

// ValidateForCreate checks the draft for account creation. Role defaults to
// client when unset.
func (d *UserDraft) ValidateForCreate() error {
	if strings.TrimSpace(d.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidDraft)
	}
	if strings.TrimSpace(d.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidDraft)
	}
	if strings.TrimSpace(d.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidDraft)
	}
	if len(d.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidDraft, MinPasswordLength)
	}
	if d.Role == "" {
		d.Role = RoleClient
	}
	return nil
}
