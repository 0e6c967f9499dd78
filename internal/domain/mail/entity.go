package mail

import "strings"

// InboundEmail is a vendor reply as delivered by the inbound webhook.
type InboundEmail struct {
	From        string
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Body returns the plain-text part, falling back to the HTML part when the
// text part is blank.
func (e InboundEmail) Body() string {
	if strings.TrimSpace(e.Text) != "" {
		return e.Text
	}
	return e.HTML
}

// Attachment is a file part of an inbound email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"mimetype"`
	Size        int    `json:"size"`
	Content     []byte `json:"-"`
	// URL is set once the attachment has been archived.
	URL string `json:"url,omitempty"`
}

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Receipt is what the transport reports for an accepted message.
type Receipt struct {
	MessageID  string
	StatusCode int
}
