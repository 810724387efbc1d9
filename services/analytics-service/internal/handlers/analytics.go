package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dentora/dentora/services/analytics-service/internal/stats"
)

type AnalyticsHandler struct {
	repo   *stats.Repository
	logger *slog.Logger
}

func NewAnalyticsHandler(repo *stats.Repository, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{repo: repo, logger: logger}
}

type dailyStatItem struct {
	Day            string `json:"day"`
	BookedCount    int    `json:"booked_count"`
	CancelledCount int    `json:"cancelled_count"`
}

// Daily returns per-day booked/cancelled counts for a date range, default
// the last 30 days.
func (h *AnalyticsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinic := strings.TrimSpace(r.Header.Get("X-Clinic-Id"))
	if clinic == "" {
		clinic = strings.TrimSpace(r.URL.Query().Get("clinic_id"))
	}
	if clinic == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		from = t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to = t
	}
	if to.Before(from) {
		http.Error(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	rows, err := h.repo.DailyStats(r.Context(), clinic, from, to)
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	items := make([]dailyStatItem, 0, len(rows))
	for _, s := range rows {
		items = append(items, dailyStatItem{
			Day:            s.Day.Format("2006-01-02"),
			BookedCount:    s.BookedCount,
			CancelledCount: s.CancelledCount,
		})
	}

	body, err := json.Marshal(items)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
