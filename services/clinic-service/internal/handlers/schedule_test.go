package handlers

import (
	"testing"

	"github.com/dentora/dentora/services/clinic-service/internal/availability"
)

func TestBlockedDateFromRequest(t *testing.T) {
	full, err := blockedDateFromRequest(blockedDateRequest{PractitionerID: "p1", Date: "2026-05-01"})
	if err != nil {
		t.Fatalf("full-day request failed: %v", err)
	}
	if !full.AllDay || full.Date != "2026-05-01" {
		t.Fatalf("full-day entry = %+v", full)
	}

	explicit := true
	full2, err := blockedDateFromRequest(blockedDateRequest{PractitionerID: "p1", Date: "2026-05-01", AllDay: &explicit})
	if err != nil {
		t.Fatalf("explicit all-day request failed: %v", err)
	}
	if !full2.AllDay {
		t.Fatalf("explicit all-day entry = %+v", full2)
	}

	partial := false
	entry, err := blockedDateFromRequest(blockedDateRequest{
		PractitionerID: "p1",
		Date:           "2026-05-01",
		AllDay:         &partial,
		Start:          "09:00",
		End:            "11:30",
	})
	if err != nil {
		t.Fatalf("partial request failed: %v", err)
	}
	if entry.AllDay || entry.Span != (availability.MinuteSpan{Start: 9 * 60, End: 11*60 + 30}) {
		t.Fatalf("partial entry = %+v", entry)
	}

	bad := []blockedDateRequest{
		{PractitionerID: "p1", Date: "2026-05-01", AllDay: &partial},
		{PractitionerID: "p1", Date: "2026-05-01", AllDay: &partial, Start: "09:00", End: "bad"},
		{PractitionerID: "p1", Date: "2026-05-01", AllDay: &partial, Start: "11:00", End: "09:00"},
	}
	for i, req := range bad {
		if _, err := blockedDateFromRequest(req); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
