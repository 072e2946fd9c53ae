package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/orion/pkg/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel sends plain-text mail through an SMTP relay
type EmailChannel struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string

	sendMail sendMailFunc
	now      func() time.Time
}

// NewEmailChannel creates an SMTP channel from config
func NewEmailChannel(cfg config.NotificationConfig) *EmailChannel {
	return &EmailChannel{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.FromAddress,
		to:       cfg.ToAddresses,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func (c *EmailChannel) Name() string { return "email" }

// Send delivers msg to every recipient. smtp.SendMail does not take a context,
// so ctx is only checked before dialing.
func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if c.user != "" {
		auth = smtp.PlainAuth("", c.user, c.password, c.host)
	}

	addr := c.host + ":" + strconv.Itoa(c.port)
	if err := c.sendMail(addr, auth, c.from, c.to, c.build(msg)); err != nil {
		return fmt.Errorf("smtp send via %s: %w", addr, err)
	}
	return nil
}

func (c *EmailChannel) build(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(c.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", c.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Text, "\n", "\r\n"))
	return []byte(b.String())
}
