package model

import "time"

type ClinicProfile struct {
	ClinicID  string
	Name      string
	Timezone  string
	Address   string
	Phone     string
	UpdatedAt time.Time
}

type Service struct {
	ID              string
	ClinicID        string
	Name            string
	DurationMinutes int
	PriceCents      int
	CreatedAt       time.Time
}

type Practitioner struct {
	ID        string
	ClinicID  string
	Name      string
	Specialty string
	CreatedAt time.Time
}

// BookedSpan is the restricted appointment shape the availability checks
// read: occupied time only, no patient fields.
type BookedSpan struct {
	Start time.Time
	End   time.Time
}

type Appointment struct {
	ID             string
	ClinicID       string
	PractitionerID string
	ServiceName    string
	PatientName    string
	PatientEmail   string
	PatientPhone   string
	StartTime      time.Time
	EndTime        time.Time
	Status         string
	CancelledAt    *time.Time
	CancelReason   string
	CreatedAt      time.Time
}
