package scheduling

import "iter"

// Project expands weekly slots into calendar days, starting at from and
// covering days consecutive dates. A day is yielded only when at least one
// active slot falls on its weekday. The sequence holds no state between
// iterations, so ranging over it twice yields the same days.
//
// Booked times are not removed; the booking conflict check rejects them.
func Project(slots []TimeSlot, from Date, days int) iter.Seq[DayAvailability] {
	byDay := make(map[Weekday][]TimeSlot)
	for _, s := range slots {
		if s.IsActive {
			byDay[s.Day] = append(byDay[s.Day], s)
		}
	}
	for _, list := range byDay {
		SortSlots(list)
	}

	return func(yield func(DayAvailability) bool) {
		for i := 0; i < days; i++ {
			date := from.AddDays(i)
			wd := date.Weekday()
			list := byDay[wd]
			if len(list) == 0 {
				continue
			}
			entry := DayAvailability{Date: date, Weekday: wd, Slots: append([]TimeSlot(nil), list...)}
			if !yield(entry) {
				return
			}
		}
	}
}

// Take collects at most n entries from seq.
func Take[T any](seq iter.Seq[T], n int) []T {
	if n <= 0 {
		return []T{}
	}
	out := make([]T, 0, n)
	for v := range seq {
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}
