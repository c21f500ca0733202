package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Email delivers HTML alerts over SMTP. Port 465 uses implicit TLS; other
// ports upgrade with STARTTLS when the server offers it.
type Email struct {
	host     string
	port     int
	user     string
	password string
	to       string
	now      func() time.Time
}

func NewEmail(host string, port int, user, password, to string) *Email {
	if port == 0 {
		port = 587
	}
	to = strings.TrimSpace(to)
	if to == "" {
		to = strings.TrimSpace(user)
	}
	return &Email{
		host:     strings.TrimSpace(host),
		port:     port,
		user:     strings.TrimSpace(user),
		password: password,
		to:       to,
		now:      time.Now,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, m Message) error {
	if e.host == "" || e.user == "" || e.to == "" {
		return ErrNotConfigured
	}
	addr := net.JoinHostPort(e.host, strconv.Itoa(e.port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("notify: email: dial %s: %w", addr, err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = e.now().Add(30 * time.Second)
	}
	_ = conn.SetDeadline(deadline)

	tlsCfg := &tls.Config{ServerName: e.host, MinVersion: tls.VersionTLS12}
	if e.port == 465 {
		conn = tls.Client(conn, tlsCfg)
	}
	c, err := smtp.NewClient(conn, e.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("notify: email: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("notify: email: starttls: %w", err)
		}
	}
	if ok, _ := c.Extension("AUTH"); ok && e.password != "" {
		if err := c.Auth(smtp.PlainAuth("", e.user, e.password, e.host)); err != nil {
			return fmt.Errorf("notify: email: auth: %w", err)
		}
	}
	if err := c.Mail(e.user); err != nil {
		return fmt.Errorf("notify: email: mail from: %w", err)
	}
	if err := c.Rcpt(e.to); err != nil {
		return fmt.Errorf("notify: email: rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("notify: email: data: %w", err)
	}
	if _, err := w.Write(e.compose(m)); err != nil {
		return fmt.Errorf("notify: email: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("notify: email: %w", err)
	}
	return c.Quit()
}

func (e *Email) compose(m Message) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", e.user)
	header("To", e.to)
	if m.ReplyTo != "" && !strings.ContainsAny(m.ReplyTo, "\r\n") {
		header("Reply-To", m.ReplyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", e.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.HTML, "\n", "\r\n"))
	return b.Bytes()
}
