// Package inboundmail decodes inbound webhook payloads into mail.InboundEmail.
package inboundmail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
)

// MaxAttachmentBytes caps how much of a single file part is read.
const MaxAttachmentBytes = 10 << 20

// ParseRequest reads a SendGrid Inbound Parse post. Multipart and urlencoded
// forms are accepted, JSON bodies with the same field names as well. When only
// the raw MIME message ("email" field) is present it is decoded with enmime.
func ParseRequest(r *http.Request, maxMemory int64) (mail.InboundEmail, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var body struct {
			From    string `json:"from"`
			To      string `json:"to"`
			Subject string `json:"subject"`
			Text    string `json:"text"`
			HTML    string `json:"html"`
			Email   string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return mail.InboundEmail{}, fmt.Errorf("decode json payload: %w", err)
		}
		e := mail.InboundEmail{From: body.From, To: body.To, Subject: body.Subject, Text: body.Text, HTML: body.HTML}
		return withRaw(e, body.Email), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return mail.InboundEmail{}, fmt.Errorf("parse multipart form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return mail.InboundEmail{}, fmt.Errorf("parse form: %w", err)
	}

	e := mail.InboundEmail{
		From:    r.PostFormValue("from"),
		To:      r.PostFormValue("to"),
		Subject: r.PostFormValue("subject"),
		Text:    r.PostFormValue("text"),
		HTML:    r.PostFormValue("html"),
	}

	if r.MultipartForm != nil {
		fields := make([]string, 0, len(r.MultipartForm.File))
		for name := range r.MultipartForm.File {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		for _, name := range fields {
			for _, fh := range r.MultipartForm.File[name] {
				f, err := fh.Open()
				if err != nil {
					return mail.InboundEmail{}, fmt.Errorf("open attachment %s: %w", fh.Filename, err)
				}
				content, err := io.ReadAll(io.LimitReader(f, MaxAttachmentBytes))
				f.Close()
				if err != nil {
					return mail.InboundEmail{}, fmt.Errorf("read attachment %s: %w", fh.Filename, err)
				}
				ctype := fh.Header.Get("Content-Type")
				if ctype == "" {
					ctype = http.DetectContentType(content)
				}
				e.Attachments = append(e.Attachments, mail.Attachment{
					Filename:    fh.Filename,
					ContentType: ctype,
					Size:        len(content),
					Content:     content,
				})
			}
		}
	}

	return withRaw(e, r.PostFormValue("email")), nil
}

// withRaw fills missing parts of e from the raw MIME message, if any.
func withRaw(e mail.InboundEmail, raw string) mail.InboundEmail {
	if strings.TrimSpace(raw) == "" || (e.Text != "" || e.HTML != "") {
		return e
	}
	parsed, err := FromMIME([]byte(raw))
	if err != nil {
		return e
	}
	e.Text, e.HTML = parsed.Text, parsed.HTML
	if e.From == "" {
		e.From = parsed.From
	}
	if e.To == "" {
		e.To = parsed.To
	}
	if e.Subject == "" {
		e.Subject = parsed.Subject
	}
	e.Attachments = append(e.Attachments, parsed.Attachments...)
	return e
}

// FromMIME decodes a raw RFC 5322 message.
func FromMIME(raw []byte) (mail.InboundEmail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return mail.InboundEmail{}, fmt.Errorf("read mime envelope: %w", err)
	}
	e := mail.InboundEmail{
		From:    env.GetHeader("From"),
		To:      env.GetHeader("To"),
		Subject: env.GetHeader("Subject"),
		Text:    env.Text,
		HTML:    env.HTML,
	}
	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			name = "attachment"
		}
		e.Attachments = append(e.Attachments, mail.Attachment{
			Filename:    name,
			ContentType: att.ContentType,
			Size:        len(att.Content),
			Content:     att.Content,
		})
	}
	return e, nil
}
