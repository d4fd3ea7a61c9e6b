package scheduling

import (
	"cmp"
	"fmt"
	"slices"
)

// Overlaps applies the half-open interval test: two slots on the same day
// collide when A.start < B.end and B.start < A.end. Adjacent slots do not.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Day == o.Day && s.Start < o.End && o.Start < s.End
}

// Validate checks a slot on its own, without looking at its siblings.
func (s TimeSlot) Validate() error {
	if !s.Day.Valid() {
		return fmt.Errorf("%w: day_of_week is required", ErrInvalidSlot)
	}
	if s.Start < 0 || s.End > MinutesPerDay {
		return fmt.Errorf("%w: times must fall within one day", ErrInvalidSlot)
	}
	if s.Start >= s.End {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidSlot, s.Start, s.End)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: slot_duration must be positive", ErrInvalidSlot)
	}
	if s.Duration > int(s.End-s.Start) {
		return fmt.Errorf("%w: slot_duration %d exceeds window %s-%s", ErrInvalidSlot, s.Duration, s.Start, s.End)
	}
	return nil
}

// StartTimes lists the bookable start times inside the slot, one per
// Duration step, keeping every unit within [Start, End).
func (s TimeSlot) StartTimes() []ClockTime {
	if s.Duration <= 0 {
		return nil
	}
	var out []ClockTime
	for t := s.Start; t.Add(s.Duration) <= s.End; t = t.Add(s.Duration) {
		out = append(out, t)
	}
	return out
}

// SortSlots orders slots by weekday (Monday first) then start time. Every
// listing of slots goes through here.
func SortSlots(slots []TimeSlot) {
	slices.SortStableFunc(slots, func(a, b TimeSlot) int {
		if c := cmp.Compare(a.Day, b.Day); c != 0 {
			return c
		}
		return cmp.Compare(a.Start, b.Start)
	})
}

// findOverlap returns the first active slot in existing that collides with
// candidate, ignoring candidate itself.
func findOverlap(existing []TimeSlot, candidate TimeSlot) (TimeSlot, bool) {
	for _, s := range existing {
		if s.ID == candidate.ID && candidate.ID != 0 {
			continue
		}
		if s.IsActive && s.Overlaps(candidate) {
			return s, true
		}
	}
	return TimeSlot{}, false
}
