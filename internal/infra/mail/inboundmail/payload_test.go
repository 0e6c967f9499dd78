package inboundmail_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/rfp-manager/internal/infra/mail/inboundmail"
)

const rawMessage = "From: Acme Sales <sales@acme.test>\r\n" +
	"To: rfp-abc123@inbound.buyer.test\r\n" +
	"Subject: Re: RFP-abc123: Laptops\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"We offer 20 laptops for $48,000, delivery in 21 days.\r\n"

func TestParseMultipart(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("from", "Acme Sales <sales@acme.test>"))
	require.NoError(t, w.WriteField("to", "proposals@inbound.buyer.test"))
	require.NoError(t, w.WriteField("subject", "Re: RFP-abc123: Laptops"))
	require.NoError(t, w.WriteField("text", "Our quote is attached."))
	require.NoError(t, w.WriteField("attachments", "1"))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="attachment1"; filename="quote.txt"`)
	h.Set("Content-Type", "text/plain")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("Total: 48000 USD"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/sendgrid/inbound", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	e, err := inboundmail.ParseRequest(req, 1<<20)
	require.NoError(t, err)
	require.Equal(t, "Acme Sales <sales@acme.test>", e.From)
	require.Equal(t, "Re: RFP-abc123: Laptops", e.Subject)
	require.Equal(t, "Our quote is attached.", e.Text)
	require.Len(t, e.Attachments, 1)
	require.Equal(t, "quote.txt", e.Attachments[0].Filename)
	require.Equal(t, "text/plain", e.Attachments[0].ContentType)
	require.Equal(t, 16, e.Attachments[0].Size)
}

func TestParseMultipartRawMode(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("email", rawMessage))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	e, err := inboundmail.ParseRequest(req, 1<<20)
	require.NoError(t, err)
	require.Equal(t, "Re: RFP-abc123: Laptops", e.Subject)
	require.Contains(t, e.From, "sales@acme.test")
	require.Equal(t, "rfp-abc123@inbound.buyer.test", e.To)
	require.Contains(t, e.Text, "20 laptops for $48,000")
}

func TestParseJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"from":"a@b.test","subject":"RFP-x1","html":"<p>hi</p>"}`))
	req.Header.Set("Content-Type", "application/json")

	e, err := inboundmail.ParseRequest(req, 1<<20)
	require.NoError(t, err)
	require.Equal(t, "a@b.test", e.From)
	require.Equal(t, "<p>hi</p>", e.HTML)
	require.Equal(t, "<p>hi</p>", e.Body())
}

func TestParseURLEncoded(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("from=a%40b.test&subject=hello&text=body"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	e, err := inboundmail.ParseRequest(req, 1<<20)
	require.NoError(t, err)
	require.Equal(t, "a@b.test", e.From)
	require.Equal(t, "body", e.Text)
}

func TestFromMIME(t *testing.T) {
	e, err := inboundmail.FromMIME([]byte(rawMessage))
	require.NoError(t, err)
	require.Equal(t, "Re: RFP-abc123: Laptops", e.Subject)
	require.Empty(t, e.Attachments)
}
