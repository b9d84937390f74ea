package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatSessionEvent(t *testing.T) {
	body, _ := json.Marshal(SessionEvent{
		ID: "abc", Type: SessionLogin, Email: "a@x.com", Role: "farmer",
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	line, err := FormatEvent(SessionQueue, body)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := `[2024-01-02T03:04:05Z] session login | email="a@x.com" | role=farmer | id=abc`
	if line != want {
		t.Fatalf("expected %q, got %q", want, line)
	}
}

func TestFormatFailedLoginHasNoRole(t *testing.T) {
	body, _ := json.Marshal(SessionEvent{ID: "x", Type: SessionLoginFailed, Email: "nobody@x.com"})
	line, err := FormatEvent(SessionQueue, body)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(line, "role=-") {
		t.Fatalf("expected placeholder role, got %q", line)
	}
}

func TestFormatAppointmentEvent(t *testing.T) {
	body, _ := json.Marshal(AppointmentScheduledEvent{
		AppointmentID: 10, FarmID: 1, VetID: 4, SheepIDs: []uint64{2, 3},
		Date: time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC),
	})
	line, err := FormatEvent(AppointmentQueue, body)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(line, "appointment_id=10") || !strings.Contains(line, "sheep=[2,3]") {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestFormatRejectsBadInput(t *testing.T) {
	if _, err := FormatEvent(SessionQueue, []byte("{")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if _, err := FormatEvent("other", []byte("{}")); err == nil {
		t.Fatal("expected unknown queue error")
	}
}

func TestHandleAppendsToAuditLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := NewAuditConsumer("", dir)

	for _, typ := range []string{SessionLogin, SessionLogout} {
		body, _ := json.Marshal(SessionEvent{ID: typ, Type: typ, Email: "a@x.com", Role: "farmer"})
		if err := c.Handle(SessionQueue, body); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[1], "session logout") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}
