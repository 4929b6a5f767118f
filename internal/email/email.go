package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"shollu-partner/internal/config"

	"github.com/inbucket/html2text"
	"github.com/wneessen/go-mail"
)

var ErrNoRecipient = errors.New("email has no recipient")

// Client represents an email client
type Client struct {
	host     string
	port     int
	username string
	password string
	from     string
}

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message represents an email message
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string // optional, will be auto-generated from HTML if empty
	Attachments []Attachment
}

// NewClient creates a new email client
func NewClient(cfg config.Email) *Client {
	return &Client{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

// Send delivers msg over SMTP.
func (c *Client) Send(ctx context.Context, msg *Message) error {
	m, err := c.buildMsg(msg)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	opts := []mail.Option{
		mail.WithPort(c.port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if c.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.username),
			mail.WithPassword(c.password),
		)
	}
	client, err := mail.NewClient(c.host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	slog.Info("Email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// WriteTo renders msg as it would go over the wire.
func (c *Client) WriteTo(w io.Writer, msg *Message) error {
	m, err := c.buildMsg(msg)
	if err != nil {
		return err
	}
	_, err = m.WriteTo(w)
	return err
}

func (c *Client) buildMsg(msg *Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipient
	}
	if msg.Text == "" {
		text, err := htmlToText(msg.HTML)
		if err != nil {
			return nil, fmt.Errorf("failed to convert HTML to text: %w", err)
		}
		msg.Text = text
	}

	m := mail.NewMsg()
	if err := m.From(c.from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := m.AttachReader(a.Name, bytes.NewReader(a.Data), mail.WithFileContentType(mail.ContentType(ct))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return m, nil
}

// htmlToText converts HTML to plain text
func htmlToText(htmlContent string) (string, error) {
	text, err := html2text.FromString(htmlContent, html2text.Options{
		PrettyTables: true,
		OmitLinks:    false,
	})
	if err != nil {
		slog.Error("failed to convert HTML to text", "error", err)
		return "", err
	}
	return text, nil
}
