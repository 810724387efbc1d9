package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dentora/dentora/services/clinic-service/internal/availability"
	"github.com/dentora/dentora/services/clinic-service/internal/storage"
)

type ScheduleHandler struct {
	repo   *storage.ClinicRepository
	logger *slog.Logger
}

func NewScheduleHandler(repo *storage.ClinicRepository, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, logger: logger}
}

func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSchedule(w, r)
	case http.MethodPut:
		h.putSchedule(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScheduleHandler) getSchedule(w http.ResponseWriter, r *http.Request) {
	clinic := clinicID(r)
	practitioner := strings.TrimSpace(r.URL.Query().Get("practitioner_id"))
	if clinic == "" || practitioner == "" {
		http.Error(w, "clinic id and practitioner_id required", http.StatusBadRequest)
		return
	}

	doc, found, err := h.repo.GetSchedule(r.Context(), clinic, practitioner)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}

	// Re-encode through the model so legacy documents go out normalized.
	var cfg availability.ScheduleConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		h.logger.Error("stored schedule is invalid", "practitioner_id", practitioner, "err", err)
		http.Error(w, "stored schedule is invalid", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &cfg)
}

func (h *ScheduleHandler) putSchedule(w http.ResponseWriter, r *http.Request) {
	clinic := clinicID(r)
	practitioner := strings.TrimSpace(r.URL.Query().Get("practitioner_id"))
	if clinic == "" || practitioner == "" {
		http.Error(w, "clinic id and practitioner_id required", http.StatusBadRequest)
		return
	}

	exists, err := h.repo.PractitionerExists(r.Context(), clinic, practitioner)
	if err != nil {
		http.Error(w, "failed to load practitioner", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "practitioner not found", http.StatusNotFound)
		return
	}

	// Decode through the model before persisting: malformed documents are
	// rejected here, not discovered at slot-query time.
	var cfg availability.ScheduleConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		if errors.Is(err, availability.ErrInvalidConfiguration) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	doc, err := json.Marshal(&cfg)
	if err != nil {
		http.Error(w, "failed to encode schedule", http.StatusInternalServerError)
		return
	}
	if err := h.repo.PutSchedule(r.Context(), clinic, practitioner, doc); err != nil {
		http.Error(w, "failed to save schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &cfg)
}

type blockedDateRequest struct {
	PractitionerID string `json:"practitioner_id"`
	Date           string `json:"date"`
	AllDay         *bool  `json:"allDay"`
	Start          string `json:"start"`
	End            string `json:"end"`
}

// BlockedDates adds (POST) or removes (DELETE) one blocked-date entry by
// rewriting the stored schedule document.
func (h *ScheduleHandler) BlockedDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinic := clinicID(r)
	if clinic == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}

	var req blockedDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PractitionerID = strings.TrimSpace(req.PractitionerID)
	req.Date = strings.TrimSpace(req.Date)
	if req.PractitionerID == "" || req.Date == "" {
		http.Error(w, "practitioner_id and date required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(availability.DateLayout, req.Date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	entry, err := blockedDateFromRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, found, err := h.repo.GetSchedule(r.Context(), clinic, req.PractitionerID)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}

	var cfg availability.ScheduleConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		http.Error(w, "stored schedule is invalid", http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodPost:
		cfg.AddBlockedDate(entry)
	case http.MethodDelete:
		var span *availability.MinuteSpan
		if !entry.AllDay {
			span = &entry.Span
		}
		if removed := cfg.RemoveBlockedDate(entry.Date, span); removed == 0 {
			http.Error(w, "blocked date not found", http.StatusNotFound)
			return
		}
	}

	updated, err := json.Marshal(&cfg)
	if err != nil {
		http.Error(w, "failed to encode schedule", http.StatusInternalServerError)
		return
	}
	if err := h.repo.PutSchedule(r.Context(), clinic, req.PractitionerID, updated); err != nil {
		http.Error(w, "failed to save schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &cfg)
}

func blockedDateFromRequest(req blockedDateRequest) (availability.BlockedDate, error) {
	entry := availability.BlockedDate{Date: req.Date}
	if req.AllDay == nil || *req.AllDay {
		entry.AllDay = true
		return entry, nil
	}

	start, err := availability.ParseClock(strings.TrimSpace(req.Start))
	if err != nil {
		return availability.BlockedDate{}, errors.New("start must be HH:MM for a partial block")
	}
	end, err := availability.ParseClock(strings.TrimSpace(req.End))
	if err != nil {
		return availability.BlockedDate{}, errors.New("end must be HH:MM for a partial block")
	}
	if end <= start {
		return availability.BlockedDate{}, errors.New("end must be after start")
	}
	entry.Span = availability.MinuteSpan{Start: start, End: end}
	return entry, nil
}
