package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidConfiguration is returned when a persisted schedule document
// cannot be decoded (unparsable clock strings, malformed blocked dates).
// Malformed configuration is never masked as "no availability".
var ErrInvalidConfiguration = errors.New("invalid schedule configuration")

// DateLayout is the calendar-date form used for blocked dates and slot queries.
const DateLayout = "2006-01-02"

// MinuteSpan is a half-open [Start, End) range in minutes since local midnight.
type MinuteSpan struct {
	Start int
	End   int
}

// DayRule is one weekday's working template.
type DayRule struct {
	Active bool
	Window MinuteSpan
	Pause  *MinuteSpan // nil when the day has no break
}

// BlockedDate is an ad-hoc exception to the weekly template. A full-day
// entry makes any partial entries for the same date moot.
type BlockedDate struct {
	Date   string // YYYY-MM-DD
	AllDay bool
	Span   MinuteSpan // meaningful only when !AllDay
}

// ScheduleConfig is one practitioner's full schedule: seven weekday rules
// plus blocked-date exceptions. Values are read-only from the engine's
// perspective; the configuration UI is the sole writer.
type ScheduleConfig struct {
	Days    [7]DayRule // indexed by time.Weekday
	Blocked []BlockedDate
}

// DayRuleFor maps a date's weekday to its rule. Every weekday resolves;
// days absent from the persisted document decode as inactive.
func (c *ScheduleConfig) DayRuleFor(date time.Time) DayRule {
	return c.Days[date.Weekday()]
}

// IsFullyBlocked reports whether any blocked-date entry marks the whole
// date as unavailable. Matching is by calendar date only.
func (c *ScheduleConfig) IsFullyBlocked(date time.Time) bool {
	key := date.Format(DateLayout)
	for _, b := range c.Blocked {
		if b.AllDay && b.Date == key {
			return true
		}
	}
	return false
}

// PartialBlocksFor returns the minute spans of every partial block on the
// given date. Duplicates and overlaps are preserved; the slot loop checks
// each one, which is equivalent to rejecting on their union.
func (c *ScheduleConfig) PartialBlocksFor(date time.Time) []MinuteSpan {
	key := date.Format(DateLayout)
	var spans []MinuteSpan
	for _, b := range c.Blocked {
		if !b.AllDay && b.Date == key {
			spans = append(spans, b.Span)
		}
	}
	return spans
}

// AddBlockedDate appends a blocked-date entry. Full-day entries are
// de-duplicated by date; partial entries stack without dedup. Reports
// whether the entry was added.
func (c *ScheduleConfig) AddBlockedDate(b BlockedDate) bool {
	if b.AllDay {
		for _, existing := range c.Blocked {
			if existing.AllDay && existing.Date == b.Date {
				return false
			}
		}
	}
	c.Blocked = append(c.Blocked, b)
	return true
}

// RemoveBlockedDate drops entries matching the given date. With a nil span
// it removes full-day entries; with a span it removes partial entries with
// exactly those bounds. Returns the number of entries removed.
func (c *ScheduleConfig) RemoveBlockedDate(date string, span *MinuteSpan) int {
	kept := c.Blocked[:0]
	removed := 0
	for _, b := range c.Blocked {
		match := b.Date == date
		if match {
			if span == nil {
				match = b.AllDay
			} else {
				match = !b.AllDay && b.Span == *span
			}
		}
		if match {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	c.Blocked = kept
	return removed
}

// DefaultConfig is the schedule seeded for new practitioners:
// Monday-Friday 09:00-17:00, weekends off, no pause.
func DefaultConfig() *ScheduleConfig {
	cfg := &ScheduleConfig{}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		cfg.Days[wd] = DayRule{
			Active: true,
			Window: MinuteSpan{Start: 9 * 60, End: 17 * 60},
		}
	}
	return cfg
}

// Persisted document shape: weekday keys hold {active, start, end,
// pause_start, pause_end} with HH:MM clock strings (empty string means "no
// pause"); blocked_dates mixes bare ISO dates (legacy, full-day) with
// {date, allDay, start, end} objects. The union is normalized here so the
// engine never branches on representation.

var weekdayKeys = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

type dayRuleDoc struct {
	Active     bool   `json:"active"`
	Start      string `json:"start"`
	End        string `json:"end"`
	PauseStart string `json:"pause_start"`
	PauseEnd   string `json:"pause_end"`
}

type blockedDateDoc struct {
	Date   string `json:"date"`
	AllDay *bool  `json:"allDay"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

func (d *blockedDateDoc) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		// Legacy form: a bare date string, implicitly full-day.
		return json.Unmarshal(data, &d.Date)
	}
	type doc blockedDateDoc
	var out doc
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*d = blockedDateDoc(out)
	return nil
}

type scheduleDoc struct {
	Sunday       *dayRuleDoc      `json:"sunday,omitempty"`
	Monday       *dayRuleDoc      `json:"monday,omitempty"`
	Tuesday      *dayRuleDoc      `json:"tuesday,omitempty"`
	Wednesday    *dayRuleDoc      `json:"wednesday,omitempty"`
	Thursday     *dayRuleDoc      `json:"thursday,omitempty"`
	Friday       *dayRuleDoc      `json:"friday,omitempty"`
	Saturday     *dayRuleDoc      `json:"saturday,omitempty"`
	BlockedDates []blockedDateDoc `json:"blocked_dates"`
}

func (d *scheduleDoc) day(wd time.Weekday) *dayRuleDoc {
	switch wd {
	case time.Sunday:
		return d.Sunday
	case time.Monday:
		return d.Monday
	case time.Tuesday:
		return d.Tuesday
	case time.Wednesday:
		return d.Wednesday
	case time.Thursday:
		return d.Thursday
	case time.Friday:
		return d.Friday
	default:
		return d.Saturday
	}
}

func (d *scheduleDoc) setDay(wd time.Weekday, rule *dayRuleDoc) {
	switch wd {
	case time.Sunday:
		d.Sunday = rule
	case time.Monday:
		d.Monday = rule
	case time.Tuesday:
		d.Tuesday = rule
	case time.Wednesday:
		d.Wednesday = rule
	case time.Thursday:
		d.Thursday = rule
	case time.Friday:
		d.Friday = rule
	default:
		d.Saturday = rule
	}
}

func (c *ScheduleConfig) UnmarshalJSON(data []byte) error {
	var doc scheduleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	var cfg ScheduleConfig
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		ruleDoc := doc.day(wd)
		if ruleDoc == nil {
			continue // absent weekday decodes as inactive
		}
		rule, err := decodeDayRule(ruleDoc)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, weekdayKeys[wd], err)
		}
		cfg.Days[wd] = rule
	}

	for _, entry := range doc.BlockedDates {
		blocked, err := decodeBlockedDate(entry)
		if err != nil {
			return fmt.Errorf("%w: blocked_dates: %v", ErrInvalidConfiguration, err)
		}
		cfg.Blocked = append(cfg.Blocked, blocked)
	}

	*c = cfg
	return nil
}

func (c *ScheduleConfig) MarshalJSON() ([]byte, error) {
	var doc scheduleDoc
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		rule := c.Days[wd]
		ruleDoc := &dayRuleDoc{
			Active: rule.Active,
			Start:  formatClock(rule.Window.Start),
			End:    formatClock(rule.Window.End),
		}
		if rule.Pause != nil {
			ruleDoc.PauseStart = formatClock(rule.Pause.Start)
			ruleDoc.PauseEnd = formatClock(rule.Pause.End)
		}
		doc.setDay(wd, ruleDoc)
	}

	doc.BlockedDates = make([]blockedDateDoc, 0, len(c.Blocked))
	for _, b := range c.Blocked {
		entry := blockedDateDoc{Date: b.Date, AllDay: boolPtr(b.AllDay)}
		if !b.AllDay {
			entry.Start = formatClock(b.Span.Start)
			entry.End = formatClock(b.Span.End)
		}
		doc.BlockedDates = append(doc.BlockedDates, entry)
	}
	return json.Marshal(doc)
}

func decodeDayRule(doc *dayRuleDoc) (DayRule, error) {
	rule := DayRule{Active: doc.Active}

	if !doc.Active && doc.Start == "" && doc.End == "" {
		// Inactive placeholder; bounds are never consulted.
		return rule, nil
	}

	start, err := ParseClock(doc.Start)
	if err != nil {
		return DayRule{}, err
	}
	end, err := ParseClock(doc.End)
	if err != nil {
		return DayRule{}, err
	}
	rule.Window = MinuteSpan{Start: start, End: end}

	switch {
	case doc.PauseStart == "" && doc.PauseEnd == "":
		// No pause. Empty strings are the accepted sentinel.
	case doc.PauseStart == "" || doc.PauseEnd == "":
		return DayRule{}, fmt.Errorf("pause_start and pause_end must both be set or both be empty")
	default:
		pauseStart, err := ParseClock(doc.PauseStart)
		if err != nil {
			return DayRule{}, err
		}
		pauseEnd, err := ParseClock(doc.PauseEnd)
		if err != nil {
			return DayRule{}, err
		}
		rule.Pause = &MinuteSpan{Start: pauseStart, End: pauseEnd}
	}
	return rule, nil
}

func decodeBlockedDate(doc blockedDateDoc) (BlockedDate, error) {
	day, err := time.Parse(DateLayout, doc.Date)
	if err != nil {
		return BlockedDate{}, fmt.Errorf("bad date %q", doc.Date)
	}
	blocked := BlockedDate{Date: day.Format(DateLayout)}

	// Bare dates and {date} / {date, allDay: true} objects are full-day.
	if doc.AllDay == nil || *doc.AllDay {
		blocked.AllDay = true
		return blocked, nil
	}

	start, err := ParseClock(doc.Start)
	if err != nil {
		return BlockedDate{}, err
	}
	end, err := ParseClock(doc.End)
	if err != nil {
		return BlockedDate{}, err
	}
	blocked.Span = MinuteSpan{Start: start, End: end}
	return blocked, nil
}

// ParseClock converts an HH:MM wall-clock string to minutes since midnight.
// Accepts 24:00 as an end-of-day bound.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func boolPtr(b bool) *bool { return &b }
