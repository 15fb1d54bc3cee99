package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		raw     string
		want    UserID
		wantErr bool
	}{
		{raw: "100", want: 100},
		{raw: " 42 ", want: 42},
		{raw: "007", want: 7},
		{raw: "0", wantErr: true},
		{raw: "000", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "-5", wantErr: true},
		{raw: "+5", wantErr: true},
		{raw: "12a", wantErr: true},
		{raw: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseUserID(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUserID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserID_Mention(t *testing.T) {
	assert.Equal(t, "[id15|Anna]", UserID(15).Mention("Anna"))
	assert.Equal(t, "15", UserID(15).String())
}

func TestParseGroup(t *testing.T) {
	g, err := ParseGroup(" Senior ")
	require.NoError(t, err)
	assert.Equal(t, GroupSenior, g)

	_, err = ParseGroup("owners")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestGroup_SnapshotKey(t *testing.T) {
	assert.Equal(t, SnapshotJuniors, GroupJunior.SnapshotKey())
	assert.Equal(t, SnapshotSeniors, GroupSenior.SnapshotKey())
	assert.Equal(t, SnapshotManagement, GroupManagement.SnapshotKey())
	assert.ElementsMatch(t,
		[]SnapshotKey{SnapshotJuniors, SnapshotSeniors, SnapshotManagement},
		SnapshotKeys(),
	)
}

func TestParseActionKind(t *testing.T) {
	assert.Equal(t, ActionEnter, ParseActionKind("entered"))
	assert.Equal(t, ActionListManagement, ParseActionKind("management"))
	assert.Equal(t, ActionRemoveSenior, ParseActionKind("remove_senior"))
	assert.Equal(t, ActionNone, ParseActionKind("launch_rockets"))
	assert.Equal(t, ActionNone, ParseActionKind(""))
}

func TestActionKind_Privileged(t *testing.T) {
	assert.False(t, ActionEnter.IsPrivileged())
	assert.False(t, ActionListSenior.IsPrivileged())
	assert.True(t, ActionAddManagement.IsPrivileged())

	group, add, ok := ActionRemoveJunior.Target()
	require.True(t, ok)
	assert.Equal(t, GroupJunior, group)
	assert.False(t, add)

	_, _, ok = ActionExit.Target()
	assert.False(t, ok)

	for _, g := range []Group{GroupJunior, GroupSenior, GroupManagement} {
		for _, add := range []bool{true, false} {
			kind := MutationAction(g, add)
			gotGroup, gotAdd, ok := kind.Target()
			require.True(t, ok, "%s/%v", g, add)
			assert.Equal(t, g, gotGroup)
			assert.Equal(t, add, gotAdd)
		}
	}
}

func TestRole(t *testing.T) {
	assert.True(t, RoleManagement > RoleSenior)
	assert.True(t, RoleSenior > RoleJunior)
	assert.Equal(t, "management", RoleManagement.String())
	assert.Equal(t, "none", RoleNone.String())
	assert.Equal(t, "Senior admin", RoleSenior.Title())
	assert.Equal(t, "Junior admin", RoleNone.Title())
}

func TestJuniorSession_Elapsed(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := JuniorSession{UserID: 1, StartedAt: start, FirstName: "Anna", LastName: "Ivanova"}

	assert.Equal(t, 90*time.Minute, s.Elapsed(start.Add(90*time.Minute)))
	assert.Zero(t, s.Elapsed(start.Add(-time.Minute)), "clock skew never goes negative")
	assert.Equal(t, "Anna Ivanova", s.Profile().FullName())
}

func TestUnknownProfile(t *testing.T) {
	p := UnknownProfile()
	assert.Equal(t, UnknownName, p.FirstName)
	assert.Equal(t, UnknownName, p.LastName)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "applied", OutcomeApplied.String())
	assert.Equal(t, "already_present", OutcomeAlreadyPresent.String())
	assert.Equal(t, "not_present", OutcomeNotPresent.String())
	assert.Equal(t, "unknown", Outcome(7).String())
}

func TestKeyboard_Actions(t *testing.T) {
	kb := Keyboard{Rows: [][]Button{
		{{Action: ActionEnter}, {Action: ActionExit}},
		{{Action: ActionListJunior}},
	}}
	assert.Equal(t, []ActionKind{ActionEnter, ActionExit, ActionListJunior}, kb.Actions())
	assert.Empty(t, Keyboard{}.Actions())
}
