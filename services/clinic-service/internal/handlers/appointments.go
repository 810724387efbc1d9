package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dentora/dentora/services/clinic-service/internal/availability"
	"github.com/dentora/dentora/services/clinic-service/internal/model"
	"github.com/dentora/dentora/services/clinic-service/internal/outbox"
	"github.com/dentora/dentora/services/clinic-service/internal/storage"
)

type AppointmentHandler struct {
	clinics      *storage.ClinicRepository
	appointments *storage.AppointmentRepository
	outboxRepo   *outbox.Repository
	logger       *slog.Logger
}

func NewAppointmentHandler(clinics *storage.ClinicRepository, appointments *storage.AppointmentRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		clinics:      clinics,
		appointments: appointments,
		outboxRepo:   outboxRepo,
		logger:       logger,
	}
}

type bookRequest struct {
	ClinicID       string `json:"clinic_id"`
	PractitionerID string `json:"practitioner_id"`
	Service        string `json:"service"`
	PatientName    string `json:"patient_name"`
	PatientEmail   string `json:"patient_email"`
	PatientPhone   string `json:"patient_phone"`
	Date           string `json:"date"`
	Start          string `json:"start"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// Book confirms a slot picked on the public booking page. The slot list the
// patient saw may be stale, so the practitioner's committed appointments are
// re-read inside the booking transaction and the overlap check runs again;
// losing that race is a 409, never a double booking.
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.PractitionerID = strings.TrimSpace(req.PractitionerID)
	req.Service = strings.TrimSpace(req.Service)
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.PatientEmail = strings.TrimSpace(req.PatientEmail)
	if req.ClinicID == "" {
		req.ClinicID = clinicID(r)
	}
	if req.ClinicID == "" || req.PractitionerID == "" || req.PatientName == "" || req.PatientEmail == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	exists, err := h.clinics.PractitionerExists(ctx, req.ClinicID, req.PractitionerID)
	if err != nil {
		http.Error(w, "failed to load practitioner", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "practitioner not found", http.StatusNotFound)
		return
	}

	loc, err := clinicLocation(ctx, h.clinics, h.logger, req.ClinicID)
	if err != nil {
		http.Error(w, "failed to load clinic profile", http.StatusInternalServerError)
		return
	}
	day, err := time.ParseInLocation(availability.DateLayout, strings.TrimSpace(req.Date), loc)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	startMin, err := availability.ParseClock(strings.TrimSpace(req.Start))
	if err != nil {
		http.Error(w, "start must be HH:MM", http.StatusBadRequest)
		return
	}

	duration, err := catalogDuration(ctx, h.clinics, req.ClinicID, req.Service)
	if err != nil {
		http.Error(w, "failed to resolve service", http.StatusInternalServerError)
		return
	}

	startTime := day.Add(time.Duration(startMin) * time.Minute)
	endTime := startTime.Add(duration)
	if !startTime.After(time.Now().In(loc)) {
		http.Error(w, "requested slot is in the past", http.StatusUnprocessableEntity)
		return
	}

	tx, err := h.appointments.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	spans, err := h.appointments.ListBookedSpansTx(ctx, tx, req.ClinicID, req.PractitionerID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		http.Error(w, "failed to load booked slots", http.StatusInternalServerError)
		return
	}
	existing := make([]availability.Interval, 0, len(spans))
	for _, s := range spans {
		existing = append(existing, availability.Interval{Start: s.Start.In(loc), End: s.End.In(loc)})
	}
	if err := availability.CheckConflict(availability.Interval{Start: startTime, End: endTime}, existing); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	appt := &model.Appointment{
		ClinicID:       req.ClinicID,
		PractitionerID: req.PractitionerID,
		ServiceName:    req.Service,
		PatientName:    req.PatientName,
		PatientEmail:   req.PatientEmail,
		PatientPhone:   strings.TrimSpace(req.PatientPhone),
		StartTime:      startTime,
		EndTime:        endTime,
		Status:         "booked",
	}
	id, err := h.appointments.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			// The exclusion constraint is the backstop for writes that
			// raced between our overlap check and the insert.
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	evt, err := outbox.NewAppointmentEvent(outbox.EventAppointmentBooked, outbox.AppointmentPayload{
		AppointmentID:  id,
		ClinicID:       appt.ClinicID,
		PractitionerID: appt.PractitionerID,
		ServiceName:    appt.ServiceName,
		StartTime:      startTime.UTC(),
		EndTime:        endTime.UTC(),
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, bookResponse{
		AppointmentID: id,
		StartTime:     startTime.Format(time.RFC3339),
		EndTime:       endTime.Format(time.RFC3339),
	})
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type cancelResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at"`
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinic := clinicID(r)
	if clinic == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.appointments.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.appointments.GetAppointmentForUpdate(ctx, tx, clinic, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	// Cancelling twice is a no-op returning the original cancellation.
	if appt.Status == "cancelled" && appt.CancelledAt != nil {
		writeJSON(w, http.StatusOK, cancelResponse{
			AppointmentID: appt.ID,
			Status:        "cancelled",
			CancelledAt:   appt.CancelledAt.UTC().Format(time.RFC3339),
		})
		return
	}
	if appt.Status != "booked" {
		http.Error(w, "appointment cannot be cancelled", http.StatusConflict)
		return
	}

	cancelledAt, err := h.appointments.Cancel(ctx, tx, clinic, appt.ID, req.Reason)
	if err != nil {
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}

	evt, err := outbox.NewAppointmentEvent(outbox.EventAppointmentCancelled, outbox.AppointmentPayload{
		AppointmentID:  appt.ID,
		ClinicID:       appt.ClinicID,
		PractitionerID: appt.PractitionerID,
		ServiceName:    appt.ServiceName,
		StartTime:      appt.StartTime.UTC(),
		EndTime:        appt.EndTime.UTC(),
		OccurredAt:     cancelledAt.UTC(),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cancelResponse{
		AppointmentID: appt.ID,
		Status:        "cancelled",
		CancelledAt:   cancelledAt.UTC().Format(time.RFC3339),
	})
}

type appointmentItem struct {
	AppointmentID  string `json:"appointment_id"`
	PractitionerID string `json:"practitioner_id"`
	Service        string `json:"service"`
	PatientName    string `json:"patient_name"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Status         string `json:"status"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinic := clinicID(r)
	if clinic == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.appointments.ListByClinic(r.Context(), clinic, limit)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := appointmentItem{
			AppointmentID:  appt.ID,
			PractitionerID: appt.PractitionerID,
			Service:        appt.ServiceName,
			PatientName:    appt.PatientName,
			StartTime:      appt.StartTime.UTC().Format(time.RFC3339),
			EndTime:        appt.EndTime.UTC().Format(time.RFC3339),
			Status:         appt.Status,
			CreatedAt:      appt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if appt.CancelledAt != nil {
			item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
