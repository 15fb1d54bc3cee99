package domain

import (
	"fmt"
	"strings"
	"time"
)

// JuniorSession is an "on duty" presence record of a junior admin.
type JuniorSession struct {
	UserID    UserID
	StartedAt time.Time
	FirstName string
	LastName  string
}

func (s JuniorSession) Elapsed(now time.Time) time.Duration {
	if now.Before(s.StartedAt) {
		return 0
	}
	return now.Sub(s.StartedAt)
}

func (s JuniorSession) Profile() Profile {
	return Profile{FirstName: s.FirstName, LastName: s.LastName}
}

// Group names one of the three roster sets.
type Group string

const (
	GroupJunior     Group = "junior"
	GroupSenior     Group = "senior"
	GroupManagement Group = "management"
)

func ParseGroup(raw string) (Group, error) {
	switch g := Group(strings.ToLower(strings.TrimSpace(raw))); g {
	case GroupJunior, GroupSenior, GroupManagement:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGroup, raw)
	}
}

// SnapshotKey identifies the persisted record of one roster set.
type SnapshotKey string

const (
	SnapshotJuniors    SnapshotKey = "admins"
	SnapshotSeniors    SnapshotKey = "senior_admins"
	SnapshotManagement SnapshotKey = "management"
)

// SnapshotKeys lists every persisted record.
func SnapshotKeys() []SnapshotKey {
	return []SnapshotKey{SnapshotJuniors, SnapshotSeniors, SnapshotManagement}
}

func (g Group) SnapshotKey() SnapshotKey {
	switch g {
	case GroupSenior:
		return SnapshotSeniors
	case GroupManagement:
		return SnapshotManagement
	default:
		return SnapshotJuniors
	}
}

// Outcome reports what a roster mutation did. AlreadyPresent and NotPresent
// are informational and leave state unchanged.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeAlreadyPresent
	OutcomeNotPresent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyPresent:
		return "already_present"
	case OutcomeNotPresent:
		return "not_present"
	default:
		return "unknown"
	}
}
