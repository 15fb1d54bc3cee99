package services

import (
	"fmt"
	"strings"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/pkg/utils"
)

var (
	baseRows = [][]domain.Button{
		{
			{Label: "Enter", Action: domain.ActionEnter, Color: domain.ColorPositive},
			{Label: "Exit", Action: domain.ActionExit, Color: domain.ColorNegative},
		},
		{
			{Label: "Junior admins", Action: domain.ActionListJunior, Color: domain.ColorSecondary},
			{Label: "Senior admins", Action: domain.ActionListSenior, Color: domain.ColorPrimary},
		},
		{
			{Label: "Management", Action: domain.ActionListManagement, Color: domain.ColorPrimary},
		},
	}

	managementRows = [][]domain.Button{
		{
			{Label: "Add junior", Action: domain.ActionAddJunior, Color: domain.ColorPositive},
			{Label: "Remove junior", Action: domain.ActionRemoveJunior, Color: domain.ColorNegative},
		},
		{
			{Label: "Add senior", Action: domain.ActionAddSenior, Color: domain.ColorPositive},
			{Label: "Remove senior", Action: domain.ActionRemoveSenior, Color: domain.ColorNegative},
		},
		{
			{Label: "Add management", Action: domain.ActionAddManagement, Color: domain.ColorPositive},
			{Label: "Remove management", Action: domain.ActionRemoveManagement, Color: domain.ColorNegative},
		},
	}

	labelActions = buildLabelIndex()
)

func buildLabelIndex() map[string]domain.ActionKind {
	index := make(map[string]domain.ActionKind)
	for _, rows := range [][][]domain.Button{baseRows, managementRows} {
		for _, row := range rows {
			for _, b := range row {
				index[strings.ToLower(b.Label)] = b.Action
			}
		}
	}
	return index
}

// KeyboardFor returns the button layout for a role. Management sees the six
// roster mutation buttons on top of the base layout.
func KeyboardFor(role domain.Role) domain.Keyboard {
	rows := make([][]domain.Button, 0, len(baseRows)+len(managementRows))
	rows = append(rows, baseRows...)
	if role == domain.RoleManagement {
		rows = append(rows, managementRows...)
	}
	return domain.Keyboard{Rows: rows}
}

// ActionFromLabel maps literal button text to its action.
func ActionFromLabel(text string) domain.ActionKind {
	return labelActions[strings.ToLower(strings.TrimSpace(text))]
}

const (
	msgInternalError   = "Internal error, try again later."
	msgDenied          = "This action is available to management only."
	msgUnresolvable    = "Could not recognise the user. Send a numeric id, a mention or a profile link."
	msgUnknownCommand  = "Unknown command. Send /help for the list of commands."
	msgUnknownGroup    = "Unknown group. Available: junior, senior, management."
	msgAlreadyOnDuty   = "You are already on duty."
	msgNotOnDuty       = "You are not on duty."
	msgEmptyJuniorList = "Nobody is on duty right now."
	msgEmptyList       = "The list is empty."
)

const helpText = "Available commands:\n\n" +
	"Management:\n" +
	"/addgroup <group> <user> - add a user to a group\n" +
	"/removegroup <group> <user> - remove a user from a group\n" +
	"Groups: junior, senior, management\n\n" +
	"Everyone:\n" +
	"/help - this message\n" +
	"Use the keyboard buttons to go on or off duty and to view the lists."

func usageText(command string) string {
	return fmt.Sprintf("Usage: %s <group> <user>\nGroups: junior, senior, management\nExample: %s junior [id1|Pavel]", command, command)
}

var promptTexts = map[domain.ActionKind]string{
	domain.ActionAddJunior:        "Send the id or profile link of the user to appoint as junior admin:",
	domain.ActionRemoveJunior:     "Send the id or profile link of the user to remove from junior admins:",
	domain.ActionAddSenior:        "Send the id or profile link of the user to appoint as senior admin:",
	domain.ActionRemoveSenior:     "Send the id or profile link of the user to remove from senior admins:",
	domain.ActionAddManagement:    "Send the id or profile link of the user to appoint to management:",
	domain.ActionRemoveManagement: "Send the id or profile link of the user to remove from management:",
}

func promptText(action domain.ActionKind) string {
	return promptTexts[action]
}

var groupNouns = map[domain.Group]string{
	domain.GroupJunior:     "a junior admin",
	domain.GroupSenior:     "a senior admin",
	domain.GroupManagement: "management",
}

var groupPlurals = map[domain.Group]string{
	domain.GroupJunior:     "junior admins",
	domain.GroupSenior:     "senior admins",
	domain.GroupManagement: "management",
}

// mutationText renders the feedback for an add/remove on group.
func mutationText(group domain.Group, add bool, outcome domain.Outcome, target domain.UserID, name string) string {
	who := target.Mention(name)
	switch {
	case add && outcome == domain.OutcomeApplied:
		return fmt.Sprintf("%s is now %s!", who, groupNouns[group])
	case add:
		return fmt.Sprintf("%s is already %s.", who, groupNouns[group])
	case outcome == domain.OutcomeApplied:
		return fmt.Sprintf("%s was removed from %s.", who, groupPlurals[group])
	default:
		return fmt.Sprintf("%s is not %s.", who, groupNouns[group])
	}
}

func enterText(role domain.Role, actor domain.UserID, profile domain.Profile, online int) string {
	title := role.Title()
	if role == domain.RoleNone {
		title = domain.RoleJunior.Title()
	}
	return fmt.Sprintf("%s %s is now on duty.\nJunior admins online: %d", title, actor.Mention(profile.FullName()), online)
}

func exitText(actor domain.UserID, session domain.JuniorSession, online int) string {
	return fmt.Sprintf("Admin %s went off duty.\nJunior admins online: %d", actor.Mention(session.Profile().FullName()), online)
}

// JuniorListEntry renders one line of the on-duty list.
func JuniorListEntry(position int, session domain.JuniorSession, now time.Time) string {
	return fmt.Sprintf("%d. %s — %s", position, session.UserID.Mention(session.Profile().FullName()), utils.FormatOnline(session.Elapsed(now)))
}

func juniorListText(sessions []domain.JuniorSession, now time.Time) string {
	const header = "Junior admins online:\n\n"
	if len(sessions) == 0 {
		return header + msgEmptyJuniorList
	}
	lines := make([]string, 0, len(sessions))
	for i, s := range sessions {
		lines = append(lines, JuniorListEntry(i+1, s, now))
	}
	return header + strings.Join(lines, "\n")
}

type memberLine struct {
	id      domain.UserID
	profile domain.Profile
	online  bool
}

func memberListText(title string, members []memberLine) string {
	header := title + ":\n\n"
	if len(members) == 0 {
		return header + msgEmptyList
	}
	lines := make([]string, 0, len(members))
	for i, m := range members {
		status := "offline"
		if m.online {
			status = "online"
		}
		lines = append(lines, fmt.Sprintf("%d. %s — %s", i+1, m.id.Mention(m.profile.FullName()), status))
	}
	return header + strings.Join(lines, "\n")
}
