package email

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BuildHTMLMessage assembles a complete RFC 5322 message with an HTML body,
// suitable for the rawMessage parameter of Sender.Send.
func BuildHTMLMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.NewString(), messageIDDomain(from)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// messageIDDomain extracts the domain part of the from address for the
// Message-ID header, falling back to "localhost" when it has none.
func messageIDDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return from[i+1:]
	}
	return "localhost"
}
