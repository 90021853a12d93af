package inquiry

import (
	"net/url"
	"strings"
)

// WhatsAppBase is the business chat link.
const WhatsAppBase = "https://wa.me/message/2UGF44KYKI3UH1"

// WhatsAppText formats the chat message for s.
func WhatsAppText(s Submission) string {
	var b strings.Builder
	if s.Mode == ModeOrder {
		product := s.ProductName
		if product == "" {
			product = "your produce"
		}
		b.WriteString("Hello OUNJEEH! I'd like to place an order for *" + product + "*.")
	} else {
		b.WriteString("Hello OUNJEEH! I have a general inquiry regarding your farm-to-table services.")
	}
	b.WriteString("\n\n*Customer Details:*")
	b.WriteString("\n👤 Name: " + s.Name)
	b.WriteString("\n📧 Email: " + s.Email)
	b.WriteString("\n📞 Phone: " + s.Phone)
	if s.State != "" {
		location := s.State
		if s.City != "" {
			location = s.City + ", " + s.State
		}
		b.WriteString("\n📍 Location: " + location)
	}
	note := s.Message
	if note == "" {
		note = "No additional note"
	}
	b.WriteString("\n Note: " + note)
	return b.String()
}

// WhatsAppLink returns the deep link that opens a chat prefilled with s.
func WhatsAppLink(s Submission) string {
	return WhatsAppBase + "?text=" + encodeComponent(WhatsAppText(s))
}

// encodeComponent escapes like a URI component: spaces become %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
