// Package workflow implements the complaint status state machine: which
// actions exist, which statuses they move between, and which role may
// request them. The rule table is immutable after init.
package workflow

import (
	"fmt"

	"github.com/digicom/complaints/internal/models"
)

// Action is a named operation requested by an actor to move a complaint
// between statuses.
type Action string

const (
	ActionStart   Action = "START"
	ActionReject  Action = "REJECT"
	ActionResolve Action = "RESOLVE"
	ActionClose   Action = "CLOSE"
	ActionReopen  Action = "REOPEN"
)

// Actions lists every action in a stable order.
var Actions = []Action{ActionStart, ActionReject, ActionResolve, ActionClose, ActionReopen}

// ValidAction reports whether a is one of the known actions.
func ValidAction(a Action) bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// RoleRequirement is either "any role" or one specific role. Using a tagged
// value instead of a string sentinel keeps the role check type-safe.
type RoleRequirement struct {
	anyRole bool
	role    models.Role
}

// AnyRole allows every role to take the transition.
func AnyRole() RoleRequirement {
	return RoleRequirement{anyRole: true}
}

// RoleOf restricts the transition to a single role.
func RoleOf(r models.Role) RoleRequirement {
	return RoleRequirement{role: r}
}

// Allows reports whether the given role satisfies the requirement.
func (rr RoleRequirement) Allows(r models.Role) bool {
	return rr.anyRole || rr.role == r
}

// Rule is one legal move: action from -> to, gated by a role requirement.
type Rule struct {
	From models.Status
	To   models.Status
	Role RoleRequirement
}

// transitions maps each action to its rules. At most one rule may exist per
// (action, from) pair; init enforces this so ValidateAction stays
// deterministic.
var transitions = map[Action][]Rule{
	ActionStart: {
		{From: models.StatusOpen, To: models.StatusInProgress, Role: RoleOf(models.RoleAdmin)},
	},
	ActionReject: {
		{From: models.StatusOpen, To: models.StatusRejected, Role: RoleOf(models.RoleAdmin)},
		{From: models.StatusInProgress, To: models.StatusRejected, Role: RoleOf(models.RoleAdmin)},
	},
	ActionResolve: {
		{From: models.StatusInProgress, To: models.StatusResolved, Role: RoleOf(models.RoleAdmin)},
	},
	ActionClose: {
		{From: models.StatusOpen, To: models.StatusClosed, Role: RoleOf(models.RoleCitizen)},
		{From: models.StatusInProgress, To: models.StatusClosed, Role: RoleOf(models.RoleCitizen)},
		{From: models.StatusResolved, To: models.StatusClosed, Role: RoleOf(models.RoleCitizen)},
		{From: models.StatusRejected, To: models.StatusClosed, Role: RoleOf(models.RoleCitizen)},
	},
	ActionReopen: {
		{From: models.StatusResolved, To: models.StatusOpen, Role: AnyRole()},
		{From: models.StatusRejected, To: models.StatusOpen, Role: RoleOf(models.RoleCitizen)},
	},
}

func init() {
	for action, rules := range transitions {
		seen := make(map[models.Status]bool, len(rules))
		for _, rule := range rules {
			if seen[rule.From] {
				panic(fmt.Sprintf("workflow: duplicate rule for action %s from status %s", action, rule.From))
			}
			seen[rule.From] = true
		}
	}
}

// ValidateAction resolves action against the current status and actor role
// and returns the resulting status. It is pure and side-effect free.
//
// Errors: models.ErrUnknownAction if the action is not in the table at all,
// models.ErrInvalidTransition if the action has no rule from the current
// status, models.ErrForbidden if the matching rule requires a different role.
func ValidateAction(action Action, current models.Status, role models.Role) (models.Status, error) {
	rules, ok := transitions[action]
	if !ok {
		return "", models.ErrUnknownAction
	}

	for _, rule := range rules {
		if rule.From != current {
			continue
		}
		if !rule.Role.Allows(role) {
			return "", models.ErrForbidden
		}
		return rule.To, nil
	}

	return "", models.ErrInvalidTransition
}

// AllowedActions returns every action the given role may take from the
// current status, in the stable order of Actions. Never fails; an empty
// slice means no legal moves.
func AllowedActions(current models.Status, role models.Role) []Action {
	allowed := make([]Action, 0, len(Actions))
	for _, action := range Actions {
		for _, rule := range transitions[action] {
			if rule.From == current && rule.Role.Allows(role) {
				allowed = append(allowed, action)
				break
			}
		}
	}
	return allowed
}
