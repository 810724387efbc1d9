package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dentora/dentora/services/clinic-service/internal/availability"
	"github.com/dentora/dentora/services/clinic-service/internal/storage"
)

type SlotsHandler struct {
	clinics      *storage.ClinicRepository
	appointments *storage.AppointmentRepository
	logger       *slog.Logger
}

func NewSlotsHandler(clinics *storage.ClinicRepository, appointments *storage.AppointmentRepository, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{clinics: clinics, appointments: appointments, logger: logger}
}

type slotItem struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// StaffSlots serves the calendar and the schedule editor preview. Past slots
// are kept: staff browse historical days and preview schedule changes for
// dates that already passed.
func (h *SlotsHandler) StaffSlots(w http.ResponseWriter, r *http.Request) {
	h.serveSlots(w, r, false)
}

// PublicSlots serves the booking page. Slots that are not strictly in the
// future are withheld.
func (h *SlotsHandler) PublicSlots(w http.ResponseWriter, r *http.Request) {
	h.serveSlots(w, r, true)
}

func (h *SlotsHandler) serveSlots(w http.ResponseWriter, r *http.Request, public bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinic := clinicID(r)
	practitioner := strings.TrimSpace(r.URL.Query().Get("practitioner_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if clinic == "" || practitioner == "" || dateStr == "" {
		http.Error(w, "clinic id, practitioner_id and date are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	loc, err := clinicLocation(ctx, h.clinics, h.logger, clinic)
	if err != nil {
		http.Error(w, "failed to load clinic profile", http.StatusInternalServerError)
		return
	}
	day, err := time.ParseInLocation(availability.DateLayout, dateStr, loc)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	duration, err := h.resolveDuration(ctx, clinic, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := h.loadSchedule(ctx, clinic, practitioner)
	if err != nil {
		h.logger.Error("stored schedule is invalid", "practitioner_id", practitioner, "err", err)
		http.Error(w, "stored schedule is invalid", http.StatusInternalServerError)
		return
	}

	excludeID := ""
	if !public {
		// Reschedule flows pass the appointment being moved so its own
		// slot stays offerable.
		excludeID = strings.TrimSpace(r.URL.Query().Get("exclude_appointment_id"))
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	spans, err := h.appointments.ListBookedSpans(ctx, clinic, practitioner, dayStart, dayEnd, excludeID)
	if err != nil {
		http.Error(w, "failed to load booked slots", http.StatusInternalServerError)
		return
	}
	booked := make([]availability.Interval, 0, len(spans))
	for _, s := range spans {
		booked = append(booked, availability.Interval{Start: s.Start.In(loc), End: s.End.In(loc)})
	}

	var now time.Time
	if public {
		now = time.Now().In(loc)
	}

	starts, err := availability.GenerateSlots(cfg, day, duration, booked, now)
	if err != nil {
		if errors.Is(err, availability.ErrInvalidDuration) {
			http.Error(w, "invalid duration", http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}

	items := make([]slotItem, 0, len(starts))
	for _, s := range starts {
		end := s.Add(duration)
		items = append(items, slotItem{
			Start:     s.Format("15:04"),
			End:       end.Format("15:04"),
			StartTime: s.Format(time.RFC3339),
			EndTime:   end.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// clinicLocation loads the clinic's time zone; clinics without a saved
// profile run in UTC.
func clinicLocation(ctx context.Context, clinics *storage.ClinicRepository, logger *slog.Logger, clinic string) (*time.Location, error) {
	profile, err := clinics.GetProfile(ctx, clinic)
	if err != nil {
		if storage.IsNotFound(err) {
			return time.UTC, nil
		}
		return nil, err
	}
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		// A saved profile always passed timezone validation; treat a bad
		// zone database entry as UTC rather than failing the query.
		logger.Warn("unknown clinic timezone", "clinic_id", clinic, "timezone", profile.Timezone)
		return time.UTC, nil
	}
	return loc, nil
}

// resolveDuration picks the slot duration: an explicit duration_minutes
// wins, then the named service's catalog entry, then 60 minutes.
func (h *SlotsHandler) resolveDuration(ctx context.Context, clinic string, r *http.Request) (time.Duration, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("duration_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 8*60 {
			return 0, errors.New("duration_minutes must be between 1 and 480")
		}
		return time.Duration(n) * time.Minute, nil
	}
	duration, err := catalogDuration(ctx, h.clinics, clinic, strings.TrimSpace(r.URL.Query().Get("service")))
	if err != nil {
		return 0, errors.New("failed to resolve service")
	}
	return duration, nil
}

// catalogDuration resolves a service name against the catalog. Unknown or
// empty names get the 60-minute default rather than an error so booking
// links keep working after a catalog rename.
func catalogDuration(ctx context.Context, clinics *storage.ClinicRepository, clinic, service string) (time.Duration, error) {
	if service != "" {
		minutes, found, err := clinics.ServiceDurationByName(ctx, clinic, service)
		if err != nil {
			return 0, err
		}
		if found {
			return time.Duration(minutes) * time.Minute, nil
		}
	}
	return 60 * time.Minute, nil
}

func (h *SlotsHandler) loadSchedule(ctx context.Context, clinic, practitioner string) (*availability.ScheduleConfig, error) {
	doc, found, err := h.clinics.GetSchedule(ctx, clinic, practitioner)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var cfg availability.ScheduleConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
