package domain

// ActionKind is a button-action token. The values double as the payload
// "action" field carried by keyboard buttons.
type ActionKind string

const (
	ActionNone             ActionKind = ""
	ActionEnter            ActionKind = "entered"
	ActionExit             ActionKind = "exited"
	ActionListJunior       ActionKind = "junior_admins"
	ActionListSenior       ActionKind = "senior_admins"
	ActionListManagement   ActionKind = "management"
	ActionAddJunior        ActionKind = "add_junior"
	ActionRemoveJunior     ActionKind = "remove_junior"
	ActionAddSenior        ActionKind = "add_senior"
	ActionRemoveSenior     ActionKind = "remove_senior"
	ActionAddManagement    ActionKind = "add_management"
	ActionRemoveManagement ActionKind = "remove_management"
)

var privilegedActions = map[ActionKind]struct {
	group Group
	add   bool
}{
	ActionAddJunior:        {GroupJunior, true},
	ActionRemoveJunior:     {GroupJunior, false},
	ActionAddSenior:        {GroupSenior, true},
	ActionRemoveSenior:     {GroupSenior, false},
	ActionAddManagement:    {GroupManagement, true},
	ActionRemoveManagement: {GroupManagement, false},
}

// ParseActionKind maps a payload token to an action. Unknown tokens map to
// ActionNone.
func ParseActionKind(token string) ActionKind {
	kind := ActionKind(token)
	switch kind {
	case ActionEnter, ActionExit, ActionListJunior, ActionListSenior, ActionListManagement:
		return kind
	}
	if _, ok := privilegedActions[kind]; ok {
		return kind
	}
	return ActionNone
}

// IsPrivileged reports whether the action mutates a roster set on behalf of
// someone else.
func (a ActionKind) IsPrivileged() bool {
	_, ok := privilegedActions[a]
	return ok
}

// Target returns the group a privileged action mutates and whether it adds.
func (a ActionKind) Target() (Group, bool, bool) {
	p, ok := privilegedActions[a]
	return p.group, p.add, ok
}

// MutationAction returns the privileged action for adding to or removing
// from a group.
func MutationAction(group Group, add bool) ActionKind {
	for kind, p := range privilegedActions {
		if p.group == group && p.add == add {
			return kind
		}
	}
	return ActionNone
}
