package services

import (
	"net/smtp"

	"stackit-backend/config"
)

var ComposeMail = composeMail

// NewSMTPMailerWithSender returns an SMTPMailer that hands messages to send.
func NewSMTPMailerWithSender(cfg config.MailConfig, send func(string, smtp.Auth, string, []string, []byte) error) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: send}
}
