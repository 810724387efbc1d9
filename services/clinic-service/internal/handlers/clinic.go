package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dentora/dentora/services/clinic-service/internal/availability"
	"github.com/dentora/dentora/services/clinic-service/internal/model"
	"github.com/dentora/dentora/services/clinic-service/internal/storage"
)

type ClinicHandler struct {
	repo   *storage.ClinicRepository
	logger *slog.Logger
}

func NewClinicHandler(repo *storage.ClinicRepository, logger *slog.Logger) *ClinicHandler {
	return &ClinicHandler{repo: repo, logger: logger}
}

type profileDoc struct {
	ClinicID string `json:"clinic_id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (h *ClinicHandler) Profile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r)
	case http.MethodPut:
		h.putProfile(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ClinicHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	id := clinicID(r)
	if id == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}
	profile, err := h.repo.GetProfile(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "clinic not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profileDoc{
		ClinicID: profile.ClinicID,
		Name:     profile.Name,
		Timezone: profile.Timezone,
		Address:  profile.Address,
		Phone:    profile.Phone,
	})
}

func (h *ClinicHandler) putProfile(w http.ResponseWriter, r *http.Request) {
	id := clinicID(r)
	if id == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}

	var req profileDoc
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}

	saved, err := h.repo.UpsertProfile(r.Context(), model.ClinicProfile{
		ClinicID: id,
		Name:     req.Name,
		Timezone: req.Timezone,
		Address:  strings.TrimSpace(req.Address),
		Phone:    strings.TrimSpace(req.Phone),
	})
	if err != nil {
		http.Error(w, "failed to save profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profileDoc{
		ClinicID: saved.ClinicID,
		Name:     saved.Name,
		Timezone: saved.Timezone,
		Address:  saved.Address,
		Phone:    saved.Phone,
	})
}

type serviceDoc struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int    `json:"price_cents,omitempty"`
}

func (h *ClinicHandler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listServices(w, r)
	case http.MethodPost:
		h.createService(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ClinicHandler) listServices(w http.ResponseWriter, r *http.Request) {
	id := clinicID(r)
	if id == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}
	services, err := h.repo.ListServices(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	items := make([]serviceDoc, 0, len(services))
	for _, svc := range services {
		items = append(items, serviceDoc{
			ID:              svc.ID,
			Name:            svc.Name,
			DurationMinutes: svc.DurationMinutes,
			PriceCents:      svc.PriceCents,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ClinicHandler) createService(w http.ResponseWriter, r *http.Request) {
	id := clinicID(r)
	if id == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}

	var req serviceDoc
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > 8*60 {
		http.Error(w, "duration_minutes must be between 1 and 480", http.StatusBadRequest)
		return
	}

	svcID, err := h.repo.CreateService(r.Context(), model.Service{
		ClinicID:        id,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
	})
	if err != nil {
		if storage.IsUniqueViolation(err) {
			http.Error(w, "service name already exists", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}
	req.ID = svcID
	writeJSON(w, http.StatusCreated, req)
}

type practitionerDoc struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
}

func (h *ClinicHandler) Practitioners(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listPractitioners(w, r)
	case http.MethodPost:
		h.createPractitioner(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ClinicHandler) listPractitioners(w http.ResponseWriter, r *http.Request) {
	id := clinicID(r)
	if id == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}
	practitioners, err := h.repo.ListPractitioners(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to list practitioners", http.StatusInternalServerError)
		return
	}
	items := make([]practitionerDoc, 0, len(practitioners))
	for _, p := range practitioners {
		items = append(items, practitionerDoc{ID: p.ID, Name: p.Name, Specialty: p.Specialty})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ClinicHandler) createPractitioner(w http.ResponseWriter, r *http.Request) {
	id := clinicID(r)
	if id == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}

	var req practitionerDoc
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	// New practitioners start with the standard weekday schedule so slot
	// queries work before anyone touches the schedule editor.
	seed, err := json.Marshal(availability.DefaultConfig())
	if err != nil {
		http.Error(w, "failed to build default schedule", http.StatusInternalServerError)
		return
	}

	practitionerID, err := h.repo.CreatePractitioner(r.Context(), model.Practitioner{
		ClinicID:  id,
		Name:      req.Name,
		Specialty: strings.TrimSpace(req.Specialty),
	}, seed)
	if err != nil {
		http.Error(w, "failed to create practitioner", http.StatusInternalServerError)
		return
	}
	req.ID = practitionerID
	writeJSON(w, http.StatusCreated, req)
}
