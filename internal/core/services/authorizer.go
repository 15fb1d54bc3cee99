package services

import (
	"fmt"

	"rosterbot/internal/core/domain"
)

// Authorize gates an action on the actor's resolved role. Every roster
// mutation is management-only; self-service and list views are open to all.
func Authorize(role domain.Role, action domain.ActionKind) error {
	if !action.IsPrivileged() {
		return nil
	}
	if role == domain.RoleManagement {
		return nil
	}
	return fmt.Errorf("%w: %s requires management, actor is %s", domain.ErrDenied, action, role)
}
