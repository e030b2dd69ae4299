package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"sort"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/report"
)

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends reports as HTML mail with the attachments inlined.
type SMTP struct {
	cfg      SMTPConfig
	md       goldmark.Markdown
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now      func() time.Time
}

// NewSMTP creates a mail sender.
func NewSMTP(cfg SMTPConfig) *SMTP {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	return &SMTP{cfg: cfg, md: md, sendMail: smtp.SendMail, now: time.Now}
}

// Send implements report.Sender. net/smtp has no context support, so ctx
// is only checked before connecting.
func (s *SMTP) Send(ctx context.Context, user catalog.User, reports []report.LocationReport, attachments map[string][]byte) error {
	if user.Email == "" {
		return fmt.Errorf("user %s has no email address", user.ID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.Message(user, reports, attachments)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	if err := s.sendMail(addr, auth, s.cfg.From, []string{user.Email}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", user.Email, err)
	}
	return nil
}

// Message builds the MIME message: a multipart/related body holding the
// HTML rendering of the reports followed by each attachment as an inline
// image addressed by its file name.
func (s *SMTP) Message(user catalog.User, reports []report.LocationReport, attachments map[string][]byte) ([]byte, error) {
	if len(reports) == 0 {
		return nil, errors.New("no reports to send")
	}

	var body bytes.Buffer
	body.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"></head><body>\n")
	if err := s.md.Convert([]byte(Markdown(user, reports, attachments)), &body); err != nil {
		return nil, fmt.Errorf("rendering report markdown: %w", err)
	}
	body.WriteString("</body></html>\n")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	subject := fmt.Sprintf("Observing plan: %d site(s), best window %s UTC",
		len(reports), earliestWindow(reports).Format("Mon 15:04"))
	header := []struct{ k, v string }{
		{"From", s.cfg.From},
		{"To", user.Email},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", fmt.Sprintf("multipart/related; boundary=%q", mw.Boundary())},
	}
	var msg bytes.Buffer
	for _, h := range header {
		fmt.Fprintf(&msg, "%s: %s\r\n", h.k, h.v)
	}
	msg.WriteString("\r\n")

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(htmlPart, body.Bytes()); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(attachments))
	for n := range attachments {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"image/png"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-ID":                {"<" + n + ">"},
			"Content-Disposition":       {fmt.Sprintf("inline; filename=%q", n)},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, attachments[n]); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	msg.Write(buf.Bytes())
	return msg.Bytes(), nil
}

func earliestWindow(reports []report.LocationReport) time.Time {
	best := reports[0].Window
	for _, r := range reports[1:] {
		if r.Window.Before(best) {
			best = r.Window
		}
	}
	return best.UTC()
}

// writeBase64 writes data base64-encoded in 76 character lines.
func writeBase64(w io.Writer, data []byte) error {
	const lineLen = 76
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 0 {
		n := min(lineLen, len(enc))
		if _, err := w.Write([]byte(enc[:n] + "\r\n")); err != nil {
			return err
		}
		enc = enc[n:]
	}
	return nil
}

var _ report.Sender = (*SMTP)(nil)
