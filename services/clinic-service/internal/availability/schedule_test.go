package availability

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestScheduleUnmarshal_MixedDocument(t *testing.T) {
	raw := `{
		"monday":    {"active": true,  "start": "08:00", "end": "17:00", "pause_start": "12:00", "pause_end": "13:00"},
		"tuesday":   {"active": true,  "start": "09:00", "end": "13:00", "pause_start": "", "pause_end": ""},
		"wednesday": {"active": false, "start": "", "end": "", "pause_start": "", "pause_end": ""},
		"blocked_dates": [
			"2026-04-10",
			{"date": "2026-04-11", "allDay": true},
			{"date": "2026-04-12"},
			{"date": "2026-04-13", "allDay": false, "start": "09:00", "end": "11:30"}
		]
	}`

	var cfg ScheduleConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	mon := cfg.Days[time.Monday]
	if !mon.Active || mon.Window.Start != 8*60 || mon.Window.End != 17*60 {
		t.Fatalf("monday rule = %+v", mon)
	}
	if mon.Pause == nil || mon.Pause.Start != 12*60 || mon.Pause.End != 13*60 {
		t.Fatalf("monday pause = %+v", mon.Pause)
	}

	tue := cfg.Days[time.Tuesday]
	if tue.Pause != nil {
		t.Fatalf("empty pause strings must decode as no pause, got %+v", tue.Pause)
	}

	if cfg.Days[time.Wednesday].Active {
		t.Fatal("wednesday should be inactive")
	}
	// Absent weekdays decode as inactive too.
	if cfg.Days[time.Thursday].Active || cfg.Days[time.Sunday].Active {
		t.Fatal("absent weekdays should be inactive")
	}

	for _, date := range []string{"2026-04-10", "2026-04-11", "2026-04-12"} {
		day, _ := time.Parse(DateLayout, date)
		if !cfg.IsFullyBlocked(day) {
			t.Fatalf("%s should be fully blocked", date)
		}
	}

	partialDay, _ := time.Parse(DateLayout, "2026-04-13")
	if cfg.IsFullyBlocked(partialDay) {
		t.Fatal("2026-04-13 is only partially blocked")
	}
	spans := cfg.PartialBlocksFor(partialDay)
	if len(spans) != 1 || spans[0] != (MinuteSpan{Start: 9 * 60, End: 11*60 + 30}) {
		t.Fatalf("partial blocks = %+v", spans)
	}
}

func TestScheduleUnmarshal_InvalidClock(t *testing.T) {
	cases := []string{
		`{"monday": {"active": true, "start": "8am", "end": "17:00"}}`,
		`{"monday": {"active": true, "start": "08:00", "end": "25:00"}}`,
		`{"monday": {"active": true, "start": "08:00", "end": "17:00", "pause_start": "12:00", "pause_end": ""}}`,
		`{"blocked_dates": [{"date": "not-a-date"}]}`,
		`{"blocked_dates": [{"date": "2026-04-13", "allDay": false, "start": "oops", "end": "11:00"}]}`,
	}
	for _, raw := range cases {
		var cfg ScheduleConfig
		err := json.Unmarshal([]byte(raw), &cfg)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("document %s: expected ErrInvalidConfiguration, got %v", raw, err)
		}
	}
}

func TestScheduleUnmarshal_EndOfDayBound(t *testing.T) {
	raw := `{"friday": {"active": true, "start": "16:00", "end": "24:00"}}`
	var cfg ScheduleConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if cfg.Days[time.Friday].Window.End != 24*60 {
		t.Fatalf("end = %d, want 1440", cfg.Days[time.Friday].Window.End)
	}
}

func TestScheduleMarshal_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	rule := cfg.Days[time.Monday]
	rule.Pause = &MinuteSpan{Start: 12 * 60, End: 12*60 + 45}
	cfg.Days[time.Monday] = rule
	cfg.AddBlockedDate(BlockedDate{Date: "2026-05-01", AllDay: true})
	cfg.AddBlockedDate(BlockedDate{Date: "2026-05-02", Span: MinuteSpan{Start: 9 * 60, End: 10 * 60}})

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded ScheduleConfig
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		a, b := cfg.Days[wd], decoded.Days[wd]
		if a.Active != b.Active || a.Window != b.Window {
			t.Fatalf("%s rule changed across round trip: %+v vs %+v", weekdayKeys[wd], a, b)
		}
		if (a.Pause == nil) != (b.Pause == nil) || (a.Pause != nil && *a.Pause != *b.Pause) {
			t.Fatalf("%s pause changed across round trip", weekdayKeys[wd])
		}
	}
	if len(decoded.Blocked) != 2 {
		t.Fatalf("blocked entries = %+v", decoded.Blocked)
	}
	if !decoded.Blocked[0].AllDay || decoded.Blocked[0].Date != "2026-05-01" {
		t.Fatalf("first blocked entry = %+v", decoded.Blocked[0])
	}
	if decoded.Blocked[1].AllDay || decoded.Blocked[1].Span != (MinuteSpan{Start: 9 * 60, End: 10 * 60}) {
		t.Fatalf("second blocked entry = %+v", decoded.Blocked[1])
	}
}

func TestAddBlockedDate_Dedup(t *testing.T) {
	cfg := &ScheduleConfig{}

	if !cfg.AddBlockedDate(BlockedDate{Date: "2026-05-01", AllDay: true}) {
		t.Fatal("first full-day add should succeed")
	}
	if cfg.AddBlockedDate(BlockedDate{Date: "2026-05-01", AllDay: true}) {
		t.Fatal("duplicate full-day add should be rejected")
	}

	span := MinuteSpan{Start: 9 * 60, End: 10 * 60}
	if !cfg.AddBlockedDate(BlockedDate{Date: "2026-05-01", Span: span}) {
		t.Fatal("partial add alongside full-day should succeed")
	}
	if !cfg.AddBlockedDate(BlockedDate{Date: "2026-05-01", Span: span}) {
		t.Fatal("identical partial entries stack without dedup")
	}
	if len(cfg.Blocked) != 3 {
		t.Fatalf("blocked entries = %+v", cfg.Blocked)
	}
}

func TestRemoveBlockedDate(t *testing.T) {
	span := MinuteSpan{Start: 9 * 60, End: 10 * 60}
	cfg := &ScheduleConfig{Blocked: []BlockedDate{
		{Date: "2026-05-01", AllDay: true},
		{Date: "2026-05-01", Span: span},
		{Date: "2026-05-01", Span: span},
		{Date: "2026-05-02", AllDay: true},
	}}

	if n := cfg.RemoveBlockedDate("2026-05-01", &span); n != 2 {
		t.Fatalf("removed %d partial entries, want 2", n)
	}
	if n := cfg.RemoveBlockedDate("2026-05-01", nil); n != 1 {
		t.Fatalf("removed %d full-day entries, want 1", n)
	}
	if n := cfg.RemoveBlockedDate("2026-05-03", nil); n != 0 {
		t.Fatalf("removed %d entries for an unknown date, want 0", n)
	}
	if len(cfg.Blocked) != 1 || cfg.Blocked[0].Date != "2026-05-02" {
		t.Fatalf("remaining entries = %+v", cfg.Blocked)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	for wd := time.Monday; wd <= time.Friday; wd++ {
		rule := cfg.Days[wd]
		if !rule.Active || rule.Window.Start != 9*60 || rule.Window.End != 17*60 || rule.Pause != nil {
			t.Fatalf("%s rule = %+v", weekdayKeys[wd], rule)
		}
	}
	if cfg.Days[time.Saturday].Active || cfg.Days[time.Sunday].Active {
		t.Fatal("weekends should be inactive by default")
	}
}

func TestParseClock(t *testing.T) {
	valid := map[string]int{
		"00:00": 0,
		"08:05": 8*60 + 5,
		"23:59": 23*60 + 59,
		"24:00": 24 * 60,
	}
	for in, want := range valid {
		got, err := ParseClock(in)
		if err != nil {
			t.Fatalf("ParseClock(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseClock(%q) = %d, want %d", in, got, want)
		}
	}

	for _, in := range []string{"", "9", "9:0x", "24:30", "12:60", "-1:00", "noon"} {
		if _, err := ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) should fail", in)
		}
	}
}
