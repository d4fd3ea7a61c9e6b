package scheduling

import (
	"fmt"
	"slices"
)

// transitions lists, per role, the target states reachable from each
// non-terminal state. Terminal states have no entry for any role.
var transitions = map[Role]map[Status][]Status{
	RoleDoctor: {
		StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled},
		StatusConfirmed: {StatusConfirmed, StatusCompleted, StatusCancelled},
	},
	RolePatient: {
		StatusScheduled: {StatusCancelled},
		StatusConfirmed: {StatusCancelled},
	},
	RoleSystem: {
		StatusScheduled: {StatusNoShow},
	},
}

// doctorTargets are the only statuses a doctor may request.
var doctorTargets = []Status{StatusConfirmed, StatusCompleted, StatusCancelled}

// CheckTransition reports whether role may move an appointment from one
// status to another. Leaving a terminal state is always ErrInvalidState;
// a target the role can never request is ErrInvalidStatus.
func CheckTransition(role Role, from, to Status) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: appointment is already %s", ErrInvalidState, from)
	}
	byFrom, ok := transitions[role]
	if !ok {
		return fmt.Errorf("%w: role %q cannot change appointment status", ErrPermission, role)
	}
	if slices.Contains(byFrom[from], to) {
		return nil
	}
	if role == RoleDoctor && !slices.Contains(doctorTargets, to) {
		return fmt.Errorf("%w: %q (allowed: confirmed, completed, cancelled)", ErrInvalidStatus, to)
	}
	if role == RolePatient && to != StatusCancelled {
		return fmt.Errorf("%w: patients may only cancel", ErrInvalidStatus)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
}
