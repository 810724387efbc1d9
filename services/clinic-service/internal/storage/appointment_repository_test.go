package storage

import (
	"strings"
	"testing"
)

// The public slot and booking paths read occupied time through this query;
// patient fields stay on the staff queries.
func TestBookedSpansQueryColumns(t *testing.T) {
	for _, col := range []string{"patient_name", "patient_email", "patient_phone", "cancellation_reason"} {
		if strings.Contains(bookedSpansQuery, col) {
			t.Fatalf("booked spans query reads %s", col)
		}
	}
	for _, col := range []string{"start_time", "end_time"} {
		if !strings.Contains(bookedSpansQuery, col) {
			t.Fatalf("booked spans query does not read %s", col)
		}
	}
	if !strings.Contains(bookedSpansQuery, "status = 'booked'") {
		t.Fatalf("booked spans query must exclude cancelled rows")
	}
}
