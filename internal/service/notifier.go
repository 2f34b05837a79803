package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"gopkg.in/gomail.v2"

	"github.com/roadwatch/backend/internal/domain"
)

// Message is one outgoing notification with its attachments.
type Message struct {
	Subject    string
	Body       string
	ImagePaths []string
	VideoPath  string
}

// Mailer is the external mail-delivery contract.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ErrAlreadyNotified is returned when a second dispatch is attempted for
// the same incident.
var ErrAlreadyNotified = fmt.Errorf("notifier: incident already notified")

// Notifier sends at most one notification per incident. The guard flips on
// the attempt, not on success, so a failed send is never retried by a later
// frame.
type Notifier struct {
	mailer         Mailer
	maxAttachments int
	attempts       uint64
	backoff        time.Duration
	notified       atomic.Bool
	lastErr        atomic.Value
}

// NewNotifier creates a dispatcher for a single monitoring session.
func NewNotifier(mailer Mailer, maxAttachments int, attempts uint64, backoff time.Duration) *Notifier {
	if maxAttachments <= 0 {
		maxAttachments = 3
	}
	if attempts == 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Notifier{
		mailer:         mailer,
		maxAttachments: maxAttachments,
		attempts:       attempts,
		backoff:        backoff,
	}
}

// Notify dispatches the report with up to maxAttachments images (oldest
// first) and the clip. Returns ErrAlreadyNotified if a dispatch was already
// attempted; a delivery failure is returned to the caller as a non-fatal
// warning after the guard is set.
func (n *Notifier) Notify(ctx context.Context, report domain.IncidentReport, imagePaths []string, clipPath string) error {
	if !n.notified.CompareAndSwap(false, true) {
		return ErrAlreadyNotified
	}

	if len(imagePaths) > n.maxAttachments {
		imagePaths = imagePaths[:n.maxAttachments]
	}

	msg := Message{
		Subject:    "Accident Detection System - Critical Report",
		Body:       RenderReport(report),
		ImagePaths: imagePaths,
		VideoPath:  clipPath,
	}

	backoff := retry.WithMaxRetries(n.attempts, retry.NewExponential(n.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := n.mailer.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		n.lastErr.Store(err.Error())
		log.Printf("notification send failed: %v", err)
		return fmt.Errorf("notifier: send failed: %w", err)
	}
	return nil
}

// Notified reports whether a dispatch has been attempted.
func (n *Notifier) Notified() bool {
	return n.notified.Load()
}

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

// NewSMTPMailer creates a mailer for the configured relay.
func NewSMTPMailer(host string, port int, username, password, from, to string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		to:     to,
	}
}

// Send assembles the MIME message and delivers it. Attachment files must
// outlive the call.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetHeader("To", m.to)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/plain", msg.Body)

	for _, img := range msg.ImagePaths {
		mail.Attach(img, gomail.Rename(filepath.Base(img)))
	}
	if msg.VideoPath != "" {
		mail.Attach(msg.VideoPath, gomail.Rename(filepath.Base(msg.VideoPath)))
	}

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(mail)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: delivery failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mailer: delivery cancelled: %w", ctx.Err())
	}
}
