package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/mail"
	"github.com/segmentio/kafka-go"
)

// Sender delivers one message to recipients.
type Sender func(ctx context.Context, recipients []string, subject, body string) error

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// MailSender sends through SMTP with nikoksr/notify.
func MailSender(cfg SMTPConfig) Sender {
	return func(ctx context.Context, recipients []string, subject, body string) error {
		// Fresh mail service per message: nikoksr/notify accumulates receivers across
		// AddReceivers calls, so reusing would cause duplicate sends.
		mailSvc := mail.New(cfg.User, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
		mailSvc.AuthenticateSMTP("", cfg.User, cfg.Password, cfg.Host)
		mailSvc.AddReceivers(recipients...)

		notifier := notify.New()
		notifier.UseServices(mailSvc)
		return notifier.Send(ctx, subject, body)
	}
}

type Notifier struct {
	send       Sender
	recipients []string
}

func NewNotifier(send Sender, recipients []string) *Notifier {
	return &Notifier{send: send, recipients: recipients}
}

// HandleBatch emails every report in msgs. Undecodable messages and failed
// sends are logged and skipped so that one bad report cannot hold the
// rest back.
func (n *Notifier) HandleBatch(ctx context.Context, msgs []kafka.Message) error {
	for _, msg := range msgs {
		var evt ReportEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			slog.Warn("invalid message", "error", err, "offset", msg.Offset)
			continue
		}
		if err := n.handleEvent(ctx, evt); err != nil {
			slog.Error("handle report failed",
				"run_id", evt.RunID.String(),
				"kind", evt.Kind,
				"error", err,
			)
		}
	}
	return nil
}

func (n *Notifier) handleEvent(ctx context.Context, evt ReportEvent) error {
	if len(n.recipients) == 0 {
		slog.Debug("no report recipients configured", "run_id", evt.RunID.String())
		return nil
	}

	subject, body := Format(evt)
	if err := n.send(ctx, n.recipients, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	slog.Info("notification sent",
		"run_id", evt.RunID.String(),
		"kind", evt.Kind,
		"recipients", len(n.recipients),
	)
	return nil
}

// Format renders the subject and plain text body of a report email.
func Format(evt ReportEvent) (subject, body string) {
	subject = fmt.Sprintf("[Breadcrumbs] %s in run %s", evt.Kind, evt.RunID)

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\nKind: %s\nTime: %s\nRows: %d in, %d out\n",
		evt.RunID, evt.Kind, evt.Timestamp.Format("2006-01-02 15:04:05 UTC"), evt.RowsIn, evt.RowsOut)
	if evt.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", evt.Error)
	}
	if len(evt.Dropped) > 0 {
		b.WriteString("\nDropped by stage:\n")
		for _, stage := range slices.Sorted(maps.Keys(evt.Dropped)) {
			fmt.Fprintf(&b, "  %s: %d\n", stage, evt.Dropped[stage])
		}
	}
	if len(evt.Entries) > 0 {
		b.WriteString("\nReport:\n")
		for _, e := range evt.Entries {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", e.Kind, e.Stage, e.Message)
		}
	}
	return subject, b.String()
}
