package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// 2026-03-16 is a Monday.
var testDay = time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

func openMonday(start, end string) *ScheduleConfig {
	cfg := &ScheduleConfig{}
	cfg.Days[time.Monday] = DayRule{
		Active: true,
		Window: MinuteSpan{Start: mustClock(start), End: mustClock(end)},
	}
	return cfg
}

func mustClock(s string) int {
	m, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

func at(h, m int) time.Time {
	return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func clocks(slots []time.Time) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Format("15:04"))
	}
	return out
}

func TestGenerateSlots_OpenMorning(t *testing.T) {
	cfg := openMonday("08:00", "12:00")

	slots, err := GenerateSlots(cfg, testDay, 60*time.Minute, nil, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}

	// 11:00 is valid: 11:00+60m lands exactly on closing, which is allowed.
	want := []string{"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00"}
	if got := clocks(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_LunchPause(t *testing.T) {
	cfg := openMonday("08:00", "12:00")
	rule := cfg.Days[time.Monday]
	rule.Pause = &MinuteSpan{Start: mustClock("10:00"), End: mustClock("10:30")}
	cfg.Days[time.Monday] = rule

	slots, err := GenerateSlots(cfg, testDay, 60*time.Minute, nil, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}

	// 09:30-10:30 overlaps the pause; 10:30 starts exactly at pause end and is fine.
	want := []string{"08:00", "08:30", "09:00", "10:30", "11:00"}
	if got := clocks(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_BookedIntervalExcluded(t *testing.T) {
	cfg := openMonday("08:00", "12:00")
	booked := []Interval{{Start: at(9, 0), End: at(9, 30)}}

	slots, err := GenerateSlots(cfg, testDay, 30*time.Minute, booked, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}

	want := []string{"08:00", "08:30", "09:30", "10:00", "10:30", "11:00", "11:30"}
	if got := clocks(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_AdjacentBookingAllowed(t *testing.T) {
	cfg := openMonday("08:00", "12:00")
	booked := []Interval{{Start: at(9, 0), End: at(10, 0)}}

	slots, err := GenerateSlots(cfg, testDay, 60*time.Minute, booked, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}

	// 08:00 ends exactly when the booking starts, 10:00 starts exactly when
	// it ends; boundary touches are not conflicts.
	want := []string{"08:00", "10:00", "10:30", "11:00"}
	if got := clocks(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_FullDayBlock(t *testing.T) {
	cfg := openMonday("08:00", "12:00")
	cfg.Blocked = append(cfg.Blocked, BlockedDate{Date: testDay.Format(DateLayout), AllDay: true})

	for _, duration := range []time.Duration{15 * time.Minute, time.Hour, 4 * time.Hour} {
		slots, err := GenerateSlots(cfg, testDay, duration, nil, time.Time{})
		if err != nil {
			t.Fatalf("GenerateSlots(%s) failed: %v", duration, err)
		}
		if len(slots) != 0 {
			t.Fatalf("expected no slots on a fully blocked day, got %v", clocks(slots))
		}
	}
}

func TestGenerateSlots_PartialBlocks(t *testing.T) {
	cfg := openMonday("08:00", "12:00")
	day := testDay.Format(DateLayout)
	// Overlapping blocks: each one is checked independently, so rejection is
	// on their union 09:00-10:30.
	cfg.Blocked = append(cfg.Blocked,
		BlockedDate{Date: day, Span: MinuteSpan{Start: mustClock("09:00"), End: mustClock("10:00")}},
		BlockedDate{Date: day, Span: MinuteSpan{Start: mustClock("09:30"), End: mustClock("10:30")}},
	)

	slots, err := GenerateSlots(cfg, testDay, 30*time.Minute, nil, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}

	want := []string{"08:00", "08:30", "10:30", "11:00", "11:30"}
	if got := clocks(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_PartialBlockOnOtherDateIgnored(t *testing.T) {
	cfg := openMonday("08:00", "10:00")
	cfg.Blocked = append(cfg.Blocked, BlockedDate{
		Date: testDay.AddDate(0, 0, 7).Format(DateLayout),
		Span: MinuteSpan{Start: mustClock("08:00"), End: mustClock("10:00")},
	})

	slots, err := GenerateSlots(cfg, testDay, 30*time.Minute, nil, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %v", clocks(slots))
	}
}

func TestGenerateSlots_InactiveDay(t *testing.T) {
	cfg := openMonday("08:00", "12:00")

	// testDay+1 is a Tuesday, which this config never activates.
	slots, err := GenerateSlots(cfg, testDay.AddDate(0, 0, 1), 30*time.Minute, nil, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on an inactive day, got %v", clocks(slots))
	}
}

func TestGenerateSlots_DurationLongerThanWindow(t *testing.T) {
	cfg := openMonday("08:00", "12:00")

	slots, err := GenerateSlots(cfg, testDay, 5*time.Hour, nil, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots for an oversized duration, got %v", clocks(slots))
	}
}

func TestGenerateSlots_EmptyWindow(t *testing.T) {
	cfg := openMonday("08:00", "08:00")

	slots, err := GenerateSlots(cfg, testDay, 30*time.Minute, nil, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots for start == end, got %v", clocks(slots))
	}
}

func TestGenerateSlots_PastTimesExcluded(t *testing.T) {
	cfg := openMonday("08:00", "12:00")

	now := at(10, 30)
	slots, err := GenerateSlots(cfg, testDay, 30*time.Minute, nil, now)
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}

	// A slot starting exactly at now is also excluded; starts must be
	// strictly in the future.
	want := []string{"11:00", "11:30"}
	if got := clocks(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_ZeroNowSkipsPastFiltering(t *testing.T) {
	cfg := openMonday("08:00", "09:00")

	slots, err := GenerateSlots(cfg, testDay, 30*time.Minute, nil, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots with no past filtering, got %v", clocks(slots))
	}
}

func TestGenerateSlots_NoConfigFallback(t *testing.T) {
	booked := []Interval{{Start: at(8, 0), End: at(18, 0)}}

	// The fallback ignores bookings entirely by design.
	slots, err := GenerateSlots(nil, testDay, 60*time.Minute, booked, time.Time{})
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}

	want := []string{"08:00", "09:00", "10:00", "11:00", "14:00", "15:00", "16:00", "17:00"}
	if got := clocks(slots); !reflect.DeepEqual(got, want) {
		t.Fatalf("fallback slots = %v, want %v", got, want)
	}
}

func TestGenerateSlots_InvalidDuration(t *testing.T) {
	cfg := openMonday("08:00", "12:00")

	for _, duration := range []time.Duration{0, -30 * time.Minute, 90 * time.Second} {
		if _, err := GenerateSlots(cfg, testDay, duration, nil, time.Time{}); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("GenerateSlots(%s): expected ErrInvalidDuration, got %v", duration, err)
		}
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	cfg := openMonday("08:00", "18:00")
	rule := cfg.Days[time.Monday]
	rule.Pause = &MinuteSpan{Start: mustClock("12:00"), End: mustClock("13:00")}
	cfg.Days[time.Monday] = rule
	booked := []Interval{
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(15, 30), End: at(16, 15)},
	}

	first, err := GenerateSlots(cfg, testDay, 45*time.Minute, booked, at(8, 45))
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	second, err := GenerateSlots(cfg, testDay, 45*time.Minute, booked, at(8, 45))
	if err != nil {
		t.Fatalf("GenerateSlots failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different outputs: %v vs %v", clocks(first), clocks(second))
	}

	// Every returned slot honors the closing bound and every exclusion.
	for _, s := range first {
		end := s.Add(45 * time.Minute)
		if end.After(at(18, 0)) {
			t.Fatalf("slot %s runs past closing", s.Format("15:04"))
		}
		if s.Before(at(13, 0)) && end.After(at(12, 0)) {
			t.Fatalf("slot %s overlaps the pause", s.Format("15:04"))
		}
		for _, b := range booked {
			if s.Before(b.End) && end.After(b.Start) {
				t.Fatalf("slot %s overlaps booking %s-%s", s.Format("15:04"), b.Start.Format("15:04"), b.End.Format("15:04"))
			}
		}
		if !s.After(at(8, 45)) {
			t.Fatalf("slot %s does not start strictly after now", s.Format("15:04"))
		}
	}
}

func TestCheckConflict_Overlap(t *testing.T) {
	existing := []Interval{{Start: at(13, 30), End: at(14, 30)}}
	candidate := Interval{Start: at(14, 0), End: at(15, 0)}

	err := CheckConflict(candidate, existing)
	if err == nil {
		t.Fatal("expected a conflict")
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError, got %T", err)
	}
	if !conflict.Start.Equal(at(13, 30)) || !conflict.End.Equal(at(14, 30)) {
		t.Fatalf("conflict window = %s-%s, want 13:30-14:30", conflict.Start.Format("15:04"), conflict.End.Format("15:04"))
	}
	if !HasConflict(candidate, existing) {
		t.Fatal("HasConflict disagrees with CheckConflict")
	}
}

func TestCheckConflict_TouchingBoundsAllowed(t *testing.T) {
	existing := []Interval{{Start: at(13, 0), End: at(14, 0)}}

	before := Interval{Start: at(12, 0), End: at(13, 0)}
	after := Interval{Start: at(14, 0), End: at(15, 0)}
	if err := CheckConflict(before, existing); err != nil {
		t.Fatalf("back-to-back candidate before: unexpected conflict: %v", err)
	}
	if err := CheckConflict(after, existing); err != nil {
		t.Fatalf("back-to-back candidate after: unexpected conflict: %v", err)
	}
}
