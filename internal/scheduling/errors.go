package scheduling

import "errors"

var (
	ErrOverlap            = errors.New("time slot overlaps an existing active slot")
	ErrConflict           = errors.New("doctor already has an appointment at this date and time")
	ErrPastDate           = errors.New("appointment date is in the past")
	ErrUnverifiedDoctor   = errors.New("doctor is not verified")
	ErrInactiveDoctor     = errors.New("doctor account is inactive")
	ErrPermission         = errors.New("actor does not own this record")
	ErrInvalidState       = errors.New("appointment is in a state that does not allow this transition")
	ErrCancellationWindow = errors.New("appointment is too close to its start time to cancel")

	ErrNotFound      = errors.New("record not found")
	ErrInvalidStatus = errors.New("invalid target status")
	ErrInvalidSlot   = errors.New("invalid time slot")
	ErrNoChanges     = errors.New("no changes to apply")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStorage       = errors.New("storage failure")
)
