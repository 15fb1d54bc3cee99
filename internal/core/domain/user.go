package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// UserID is the canonical numeric identity of a chat user. It is formatted
// as a string only at I/O boundaries.
type UserID int64

// ParseUserID accepts a decimal, positive identifier. Leading zeros are
// allowed and canonicalized away ("007" and "7" are the same user).
func ParseUserID(raw string) (UserID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidUserID, raw)
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUserID, raw)
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: zero", ErrInvalidUserID)
	}
	return UserID(id), nil
}

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Mention renders the platform mention token for the user.
func (id UserID) Mention(label string) string {
	return fmt.Sprintf("[id%d|%s]", int64(id), label)
}

// UnknownName is the placeholder used when a profile cannot be fetched.
const UnknownName = "Неизвестно"

type Profile struct {
	FirstName string
	LastName  string
}

// UnknownProfile is returned whenever the profile service fails.
func UnknownProfile() Profile {
	return Profile{FirstName: UnknownName, LastName: UnknownName}
}

func (p Profile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Role is the apparent role of a user. Higher values take precedence.
type Role int

const (
	RoleNone Role = iota
	RoleJunior
	RoleSenior
	RoleManagement
)

func (r Role) String() string {
	switch r {
	case RoleJunior:
		return "junior"
	case RoleSenior:
		return "senior"
	case RoleManagement:
		return "management"
	default:
		return "none"
	}
}

// Title is the human readable role name used in replies.
func (r Role) Title() string {
	switch r {
	case RoleManagement:
		return "Management"
	case RoleSenior:
		return "Senior admin"
	default:
		return "Junior admin"
	}
}
