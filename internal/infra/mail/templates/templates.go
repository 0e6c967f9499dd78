// Package templates renders the workflow emails.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmltpl "html/template"
	"strconv"
	"strings"
	texttpl "text/template"

	"github.com/yuin/goldmark"

	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

//go:embed files/*.tmpl
var files embed.FS

var funcs = map[string]any{
	"inc":   func(i int) int { return i + 1 },
	"money": Money,
	"qty":   func(q float64) string { return strconv.FormatFloat(q, 'f', -1, 64) },
}

var (
	htmlSet = htmltpl.Must(htmltpl.New("").Funcs(funcs).ParseFS(files, "files/*.html.tmpl"))
	textSet = texttpl.Must(texttpl.New("").Funcs(funcs).ParseFS(files, "files/*.txt.tmpl"))
)

type data struct {
	Tag         string
	Rfp         *rfps.Rfp
	Vendor      *vendors.Vendor
	Proposal    *rfps.Proposal
	Description htmltpl.HTML
}

// Tag is the marker that lets a reply be matched back to its RFP.
func Tag(id rfps.ID) string { return "RFP-" + string(id) }

// RfpSubject is the subject of the outbound RFP email.
func RfpSubject(r *rfps.Rfp) string { return Tag(r.ID) + ": " + r.Title }

// Rfp renders the invitation sent to a vendor.
func Rfp(r *rfps.Rfp, v *vendors.Vendor) (mail.Message, error) {
	desc, err := markdown(r.Description)
	if err != nil {
		return mail.Message{}, err
	}
	return render("rfp", RfpSubject(r), data{Tag: Tag(r.ID), Rfp: r, Vendor: v, Description: desc})
}

// ProposalReceived renders the confirmation sent after a reply is reconciled.
func ProposalReceived(r *rfps.Rfp, v *vendors.Vendor, p *rfps.Proposal) (mail.Message, error) {
	return render("received", "Proposal Received - "+r.Title, data{Tag: Tag(r.ID), Rfp: r, Vendor: v, Proposal: p})
}

// ProposalAccepted renders the notice sent to the winning vendor.
func ProposalAccepted(r *rfps.Rfp, v *vendors.Vendor, p *rfps.Proposal) (mail.Message, error) {
	return render("accepted", "Proposal Accepted - "+r.Title, data{Tag: Tag(r.ID), Rfp: r, Vendor: v, Proposal: p})
}

func render(name, subject string, d data) (mail.Message, error) {
	var html, text bytes.Buffer
	if err := htmlSet.ExecuteTemplate(&html, name+".html.tmpl", d); err != nil {
		return mail.Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := textSet.ExecuteTemplate(&text, name+".txt.tmpl", d); err != nil {
		return mail.Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	msg := mail.Message{Subject: subject, HTML: html.String(), Text: text.String()}
	if d.Vendor != nil {
		msg.To = d.Vendor.Email
		msg.ToName = d.Vendor.Name
	}
	return msg, nil
}

// goldmark drops raw HTML unless WithUnsafe is set, so the output is safe to embed.
func markdown(s string) (htmltpl.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(s), &buf); err != nil {
		return "", fmt.Errorf("render description: %w", err)
	}
	return htmltpl.HTML(buf.String()), nil
}

// Money formats an amount as $1,234.50.
func Money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
