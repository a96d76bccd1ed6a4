// Package mailer sends verification codes over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTP delivers verification emails through a plain SMTP relay.
type SMTP struct {
	host string
	port int
	user string
	pass string
	from string
}

// New constructs the mailer. The configured user doubles as the sender.
func New(host string, port int, user, pass string) *SMTP {
	return &SMTP{host: host, port: port, user: user, pass: pass, from: user}
}

// Send delivers the verification code to the recipient.
func (m *SMTP) Send(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	msg := []byte("From: \"Partes App\" <" + m.from + ">\r\n" +
		"To: " + to + "\r\n" +
		"Subject: Código de Verificación - Partes App\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"Tu código de verificación es: " + code + "\r\n")

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
}
