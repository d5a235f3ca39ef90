package services_test

import (
	"bytes"
	"context"
	"io"
	"net/smtp"

	"github.com/emersion/go-message/mail"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"stackit-backend/config"
	"stackit-backend/services"
)

type MailerSuite struct{}

var _ = gc.Suite(&MailerSuite{})

func (*MailerSuite) TestComposeMail(c *gc.C) {
	raw, err := services.ComposeMail("StackIt <noreply@stackit.example>", services.Mail{
		To:      "alice@example.com",
		Subject: "Hello",
		Body:    "Body text\n",
	})
	c.Assert(err, jc.ErrorIsNil)

	r, err := mail.CreateReader(bytes.NewReader(raw))
	c.Assert(err, jc.ErrorIsNil)
	subject, err := r.Header.Subject()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(subject, gc.Equals, "Hello")
	to, err := r.Header.AddressList("To")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(to, gc.HasLen, 1)
	c.Check(to[0].Address, gc.Equals, "alice@example.com")

	part, err := r.NextPart()
	c.Assert(err, jc.ErrorIsNil)
	body, err := io.ReadAll(part.Body)
	c.Assert(err, jc.ErrorIsNil)
	// Text parts are written with CRLF line endings.
	c.Check(string(body), gc.Equals, "Body text\r\n")
}

func (*MailerSuite) TestComposeMailBadRecipient(c *gc.C) {
	_, err := services.ComposeMail("noreply@stackit.example", services.Mail{To: "nope"})
	c.Assert(err, gc.ErrorMatches, `recipient address "nope" not valid`)
}

func (*MailerSuite) TestSMTPMailer(c *gc.C) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotAuth smtp.Auth
	m := services.NewSMTPMailerWithSender(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user",
		Password: "secret",
		From:     "noreply@stackit.example",
	}, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo = addr, a, from, to
		return nil
	})

	err := m.Send(context.Background(), services.Mail{To: "bob@example.com", Subject: "Hi", Body: "x"})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(gotAddr, gc.Equals, "smtp.example.com:587")
	c.Check(gotFrom, gc.Equals, "noreply@stackit.example")
	c.Check(gotTo, jc.DeepEquals, []string{"bob@example.com"})
	c.Check(gotAuth, gc.NotNil)
}

func (*MailerSuite) TestNewMailerWithoutHostLogs(c *gc.C) {
	m := services.NewMailer(config.MailConfig{})
	c.Assert(m, gc.FitsTypeOf, services.LogMailer{})
	c.Assert(m.Send(context.Background(), services.Mail{To: "a@example.com"}), jc.ErrorIsNil)
}
