package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category tags the closed set of record shapes the relay understands.
type Category string

const (
	CategoryInquiry           Category = "inquiry"
	CategoryQuoteRequest      Category = "quote_request"
	CategoryContactSubmission Category = "contact_submission"
)

// Token is a bearer token granted by the identity provider together with its
// reported lifetime.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Placeholder is rendered for fields that are absent or null in the record.
const Placeholder = "--"

// DocumentField is one labeled line of the rendered notification body.
type DocumentField struct {
	Label string
	Value string
}

// NotificationDocument is the canonical post-normalization form of a record.
// It always renders into the same plain-text body for the same input,
// regardless of which raw shape produced it.
type NotificationDocument struct {
	Category Category
	Subject  string
	Header   string

	Name    string
	Email   string
	Phone   string
	Message string

	// Fields holds every line of the body in render order, including the
	// name/email/phone/message lines and the category-specific extras.
	Fields []DocumentField
}

// RenderBody produces the deterministic plain-text body: a section header,
// then one "Label : value" line per field in fixed order.
func (d NotificationDocument) RenderBody() string {
	var b strings.Builder
	b.WriteString(d.Header)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", len([]rune(d.Header))))
	b.WriteString("\n")
	for _, f := range d.Fields {
		b.WriteString(f.Label)
		b.WriteString(" : ")
		b.WriteString(f.Value)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatValue renders a raw column value for display. Nil and empty values
// degrade to the placeholder; booleans render as Yes/No.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return Placeholder
	case string:
		if strings.TrimSpace(val) == "" {
			return Placeholder
		}
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case json.Number:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
