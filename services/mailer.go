package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/juju/errors"

	"stackit-backend/config"
	"stackit-backend/models/notification"
)

// Mail - a plain text message to one recipient.
type Mail struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// NewMailer returns an SMTP mailer, or one that only logs when no host is set.
func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.Host == "" {
		return LogMailer{}
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Mail) error {
	logger.Infof("mail to %s: %s", m.To, m.Subject)
	return nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	cfg  config.MailConfig
	send sendFunc
}

// Send composes m and hands it to the SMTP server. STARTTLS is used when the
// server offers it.
func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	msg, err := composeMail(s.cfg.From, m)
	if err != nil {
		return errors.Trace(err)
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, auth, s.cfg.From, []string{m.To}, msg); err != nil {
		return errors.Annotatef(err, "sending mail to %s", m.To)
	}
	return nil
}

func composeMail(from string, m Mail) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, errors.NotValidf("sender address %q", from)
	}
	toAddr, err := mail.ParseAddress(m.To)
	if err != nil {
		return nil, errors.NotValidf("recipient address %q", m.To)
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", []*mail.Address{toAddr})
	h.SetSubject(m.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, errors.Annotate(err, "generating message id")
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, errors.Annotate(err, "creating mail writer")
	}
	if _, err := io.WriteString(w, m.Body); err != nil {
		return nil, errors.Annotate(err, "writing mail body")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Annotate(err, "closing mail body")
	}
	return buf.Bytes(), nil
}

func welcomeMail(username, email string) Mail {
	return Mail{
		To:      email,
		Subject: "Welcome to StackIt",
		Body: fmt.Sprintf("Hi %s,\n\nYour StackIt account is ready. "+
			"Ask a question, answer one, and you will be notified when someone replies.\n", username),
	}
}

func digestMail(username, email string, unread []notification.Notification) Mail {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYou have %d unread notifications on StackIt:\n\n", username, len(unread))
	for _, n := range unread {
		var what string
		switch n.Type {
		case notification.KindAnswer:
			what = "New answer to your question"
		case notification.KindComment:
			what = "New comment on your answer"
		case notification.KindMention:
			what = "You were mentioned"
		default:
			what = string(n.Type)
		}
		fmt.Fprintf(&b, "- %s (#%d, %s)\n", what, n.SourceID, n.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	return Mail{
		To:      email,
		Subject: "Your StackIt notifications",
		Body:    b.String(),
	}
}
