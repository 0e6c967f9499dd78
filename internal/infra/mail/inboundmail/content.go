package inboundmail

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
)

// maxAttachmentText caps the text taken from one attachment.
const maxAttachmentText = 20000

var spaces = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)

// docx text runs and paragraph ends
var (
	wordRun       = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	wordParagraph = regexp.MustCompile(`</w:p>`)
)

// ExtractionInput is the text handed to proposal extraction: the email body,
// converted to text when only HTML is available, followed by the readable
// content of any attachments.
func ExtractionInput(e mail.InboundEmail) string {
	body := e.Text
	if strings.TrimSpace(body) == "" && e.HTML != "" {
		body = HTMLToText(e.HTML)
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(body))
	for _, att := range e.Attachments {
		text, err := AttachmentText(att)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n--- Attachment: %s ---\n%s", att.Filename, text)
	}
	return b.String()
}

// HTMLToText flattens an HTML body, keeping one line per block and table row.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("td, th").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" | ")
	})
	doc.Find("p, div, tr, li, h1, h2, h3, h4, h5, h6, table").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return tidy(doc.Text())
}

// AttachmentText returns the readable text of PDF, spreadsheet, Word and
// plain-text attachments. Other types yield an empty string.
func AttachmentText(a mail.Attachment) (string, error) {
	ext := strings.ToLower(filepath.Ext(a.Filename))
	ctype := strings.ToLower(a.ContentType)

	var (
		text string
		err  error
	)
	switch {
	case ext == ".pdf" || strings.Contains(ctype, "pdf"):
		text, err = pdfText(a.Content)
	case ext == ".xlsx" || ext == ".xlsm" || strings.Contains(ctype, "spreadsheetml"):
		text, err = xlsxText(a.Content)
	case ext == ".docx" || strings.Contains(ctype, "wordprocessingml"):
		text, err = docxText(a.Content)
	case ext == ".txt" || ext == ".csv" || strings.HasPrefix(ctype, "text/plain") || strings.HasPrefix(ctype, "text/csv"):
		text = string(a.Content)
	case ext == ".html" || ext == ".htm" || strings.HasPrefix(ctype, "text/html"):
		text = HTMLToText(string(a.Content))
	default:
		return "", nil
	}
	if err != nil {
		return "", err
	}
	text = tidy(text)
	if len(text) > maxAttachmentText {
		text = text[:runeCut(text, maxAttachmentText)]
	}
	return text, nil
}

func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func xlsxText(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "Sheet: %s\n", sheet)
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				if c = strings.TrimSpace(c); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				b.WriteString(strings.Join(cells, " | "))
				b.WriteString("\n")
			}
		}
	}
	return b.String(), nil
}

// docxText reads word/document.xml and keeps one line per paragraph.
func docxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open docx body: %w", err)
		}
		raw, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("read docx body: %w", err)
		}
		xml := wordParagraph.ReplaceAllString(string(raw), "<w:t>\n</w:t>")
		var b strings.Builder
		for _, m := range wordRun.FindAllStringSubmatch(xml, -1) {
			b.WriteString(m[1])
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("docx body not found")
}

func tidy(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(spaces.ReplaceAllString(l, " "))
		l = strings.TrimSpace(strings.TrimSuffix(l, "|"))
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// runeCut returns the largest index <= n that does not split a UTF-8 sequence.
func runeCut(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
