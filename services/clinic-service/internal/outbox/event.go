package outbox

import (
	"encoding/json"
	"time"
)

// Topic per event type; the Kafka topic name equals EventType.
const (
	EventAppointmentBooked    = "clinic.appointment.booked.v1"
	EventAppointmentCancelled = "clinic.appointment.cancelled.v1"
)

// Event is the envelope written to the outbox table inside the booking
// transaction. The relay publishes it after commit.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the wire body of both appointment events.
type AppointmentPayload struct {
	AppointmentID  string    `json:"appointment_id"`
	ClinicID       string    `json:"clinic_id"`
	PractitionerID string    `json:"practitioner_id"`
	ServiceName    string    `json:"service_name"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewAppointmentEvent(eventType string, p AppointmentPayload) (Event, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   p.AppointmentID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
