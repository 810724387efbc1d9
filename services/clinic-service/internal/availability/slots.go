// Package availability computes bookable start times for one practitioner
// on one calendar day. It is a pure function of its inputs: the schedule
// configuration, the day's booked intervals, the requested duration and an
// injected "now". It reads no clocks and does no I/O.
package availability

import (
	"errors"
	"fmt"
	"time"
)

// SlotStepMinutes is the candidate-slot granularity. It is a fixed design
// constant shared by the calendar UI, the schedule editor preview and the
// public booking page; changing it changes user-visible availability.
const SlotStepMinutes = 30

// DefaultSlotHours are offered when a practitioner has no saved schedule at
// all: a fixed list of commonly used start hours, with no conflict
// filtering. Robustness fallback for incomplete practitioner setup.
var DefaultSlotHours = []int{8, 9, 10, 11, 14, 15, 16, 17}

// ErrInvalidDuration is returned for a duration that is not a positive
// whole number of minutes.
var ErrInvalidDuration = errors.New("invalid duration")

// Interval is a half-open [Start, End) span of wall-clock instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// GenerateSlots returns the ordered bookable start times on day for a
// service of the given duration. day must be midnight in the clinic's time
// zone; all arithmetic happens in day's location. booked carries the
// practitioner's committed appointments for that day (cancelled excluded by
// the caller). A non-zero now additionally rejects any slot that does not
// start strictly after it; pass the zero time to skip past filtering.
//
// The result is materialized eagerly and is empty (never an error) for
// inactive days, fully blocked days, and durations that cannot fit.
func GenerateSlots(cfg *ScheduleConfig, day time.Time, duration time.Duration, booked []Interval, now time.Time) ([]time.Time, error) {
	if duration < time.Minute || duration%time.Minute != 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, duration)
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	if cfg == nil {
		slots := make([]time.Time, 0, len(DefaultSlotHours))
		for _, h := range DefaultSlotHours {
			slots = append(slots, midnight.Add(time.Duration(h)*time.Hour))
		}
		return slots, nil
	}

	if cfg.IsFullyBlocked(day) {
		return nil, nil
	}
	rule := cfg.DayRuleFor(day)
	if !rule.Active {
		return nil, nil
	}

	durMin := int(duration / time.Minute)
	blocks := cfg.PartialBlocksFor(day)

	var slots []time.Time
	for m := rule.Window.Start; m < rule.Window.End; m += SlotStepMinutes {
		end := m + durMin
		if end > rule.Window.End {
			// Service would run past closing time. end == closing is allowed.
			continue
		}
		if rule.Pause != nil && overlapsSpan(m, end, *rule.Pause) {
			continue
		}
		if overlapsAnySpan(m, end, blocks) {
			continue
		}
		start := midnight.Add(time.Duration(m) * time.Minute)
		stop := midnight.Add(time.Duration(end) * time.Minute)
		if overlapsAny(start, stop, booked) {
			continue
		}
		if !now.IsZero() && !start.After(now) {
			continue
		}
		slots = append(slots, start)
	}
	return slots, nil
}

// ConflictError reports the booked window that collided with a candidate
// appointment. Recoverable: the caller rejects the booking and the user
// picks another slot.
type ConflictError struct {
	Start time.Time
	End   time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("practitioner already booked between %s and %s",
		e.Start.Format("15:04"), e.End.Format("15:04"))
}

// CheckConflict returns a *ConflictError when the candidate interval
// overlaps any existing interval, nil otherwise. It is the confirmation-time
// race guard: the slot list shown to the user may be stale by the time they
// submit.
func CheckConflict(candidate Interval, existing []Interval) error {
	for _, b := range existing {
		if candidate.Start.Before(b.End) && candidate.End.After(b.Start) {
			return &ConflictError{Start: b.Start, End: b.End}
		}
	}
	return nil
}

// HasConflict is the predicate form of CheckConflict.
func HasConflict(candidate Interval, existing []Interval) bool {
	return CheckConflict(candidate, existing) != nil
}

// All overlap checks share one half-open rule: startA < endB && endA >
// startB. Boundary touches do not overlap, so a slot may end exactly when a
// pause, block or appointment begins.

func overlapsSpan(start, end int, span MinuteSpan) bool {
	return start < span.End && end > span.Start
}

func overlapsAnySpan(start, end int, spans []MinuteSpan) bool {
	for _, span := range spans {
		if overlapsSpan(start, end, span) {
			return true
		}
	}
	return false
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if start.Before(b.End) && end.After(b.Start) {
			return true
		}
	}
	return false
}
