package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// clinicID resolves the tenant: the gateway sets X-Clinic-Id from the
// verified token for staff routes; public routes pass clinic_id explicitly.
func clinicID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Clinic-Id")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("clinic_id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
