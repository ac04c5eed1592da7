package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) send(ctx context.Context, to []string, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func anomalyEvent() ReportEvent {
	return ReportEvent{
		ID:        uuid.New(),
		RunID:     uuid.MustParse("7d3f1c2a-0b8e-4a57-9a1e-2f6b5c4d3e21"),
		Kind:      "anomaly",
		RowsIn:    120,
		RowsOut:   100,
		Dropped:   map[string]int{"range-distance": 15, "derive-speed": 5},
		Entries:   []ReportEntry{{Stage: "audit-speed", Kind: "anomaly", Message: "mean speed 64.20 over 100 rows exceeds 60.0"}},
		Timestamp: time.Date(2022, 12, 8, 12, 0, 0, 0, time.UTC),
	}
}

func message(t *testing.T, evt ReportEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Value: data}
}

func TestNotifier_HandleBatch(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender.send, []string{"ops@example.com"})

	err := n.HandleBatch(context.Background(), []kafka.Message{
		message(t, anomalyEvent()),
		{Value: []byte("{broken")},
	})
	if err != nil {
		t.Fatalf("HandleBatch: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.sent))
	}
	m := sender.sent[0]
	if m.subject != "[Breadcrumbs] anomaly in run 7d3f1c2a-0b8e-4a57-9a1e-2f6b5c4d3e21" {
		t.Errorf("subject = %q", m.subject)
	}
	if m.to[0] != "ops@example.com" {
		t.Errorf("to = %v", m.to)
	}
}

func TestNotifier_NoRecipients(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender.send, nil)
	if err := n.HandleBatch(context.Background(), []kafka.Message{message(t, anomalyEvent())}); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 0 {
		t.Error("mail sent without recipients")
	}
}

func TestNotifier_SendFailureDoesNotFailBatch(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp: 421")}
	n := NewNotifier(sender.send, []string{"ops@example.com"})
	if err := n.HandleBatch(context.Background(), []kafka.Message{message(t, anomalyEvent())}); err != nil {
		t.Errorf("HandleBatch = %v, want nil", err)
	}
}

func TestFormat(t *testing.T) {
	evt := anomalyEvent()
	evt.Kind = "schema"
	evt.Error = "schema violation: input missing columns GPS_LATITUDE"
	_, body := Format(evt)

	for _, want := range []string{
		"Rows: 120 in, 100 out",
		"Error: schema violation",
		"  derive-speed: 5\n  range-distance: 15\n",
		"[anomaly] audit-speed: mean speed 64.20",
		"2022-12-08 12:00:00 UTC",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}
