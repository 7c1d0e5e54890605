package service

import (
	"strings"

	"github.com/relaymail/relaymail/internal/domain"
)

// Normalize converts a raw record of any supported shape into the canonical
// notification document. It is pure and total: missing keys degrade to
// placeholder text, never to an error.
//
// Classification probes key presence in fixed priority order so a record
// matching several shapes resolves deterministically:
//  1. contact submission: inquiry_type plus first_name/last_name
//  2. quote request: both company and service
//  3. generic inquiry
//
// The resolver already knows each tenant's table, but legacy inline payloads
// arrive untagged, so key probing remains the classification of record.
func Normalize(rec domain.RawRecord) domain.NotificationDocument {
	switch Classify(rec) {
	case domain.CategoryContactSubmission:
		return normalizeContactSubmission(rec)
	case domain.CategoryQuoteRequest:
		return normalizeQuoteRequest(rec)
	default:
		return normalizeInquiry(rec)
	}
}

// Classify applies the priority-ordered shape probe.
func Classify(rec domain.RawRecord) domain.Category {
	if rec.Has("inquiry_type") && (rec.Has("first_name") || rec.Has("last_name")) {
		return domain.CategoryContactSubmission
	}
	if rec.Has("company") && rec.Has("service") {
		return domain.CategoryQuoteRequest
	}
	return domain.CategoryInquiry
}

func normalizeQuoteRequest(rec domain.RawRecord) domain.NotificationDocument {
	doc := domain.NotificationDocument{
		Category: domain.CategoryQuoteRequest,
		Subject:  "🆕 New Quote Request Received",
		Header:   "Quote Request Details",
		Name:     display(rec, "name"),
		Email:    display(rec, "email"),
		Phone:    display(rec, "phone"),
		Message:  display(rec, "message"),
	}
	doc.Fields = []domain.DocumentField{
		{Label: "Name", Value: doc.Name},
		{Label: "Email", Value: doc.Email},
		{Label: "Phone", Value: doc.Phone},
		{Label: "Company", Value: display(rec, "company")},
		{Label: "Service", Value: display(rec, "service")},
		{Label: "Message", Value: doc.Message},
		{Label: "Consent", Value: display(rec, "consent")},
	}
	return doc
}

func normalizeContactSubmission(rec domain.RawRecord) domain.NotificationDocument {
	var parts []string
	for _, key := range []string{"first_name", "last_name"} {
		if v, ok := rec.Get(key); ok {
			if s := domain.FormatValue(v); s != domain.Placeholder {
				parts = append(parts, s)
			}
		}
	}
	name := strings.Join(parts, " ")
	if name == "" {
		name = domain.Placeholder
	}
	doc := domain.NotificationDocument{
		Category: domain.CategoryContactSubmission,
		Subject:  "🆕 New Contact Form Submission",
		Header:   "Contact Form Submission",
		Name:     name,
		Email:    display(rec, "email"),
		Phone:    display(rec, "phone"),
		Message:  display(rec, "message"),
	}
	doc.Fields = []domain.DocumentField{
		{Label: "Name", Value: doc.Name},
		{Label: "Email", Value: doc.Email},
		{Label: "Phone", Value: doc.Phone},
		{Label: "Inquiry Type", Value: display(rec, "inquiry_type")},
		{Label: "Message", Value: doc.Message},
		{Label: "Consent", Value: display(rec, "consent")},
	}
	return doc
}

func normalizeInquiry(rec domain.RawRecord) domain.NotificationDocument {
	doc := domain.NotificationDocument{
		Category: domain.CategoryInquiry,
		Subject:  "🆕 New Inquiry Received",
		Header:   "Inquiry Details",
		Name:     display(rec, "name"),
		Email:    display(rec, "email"),
		Phone:    display(rec, "phone"),
		Message:  display(rec, "message"),
	}
	doc.Fields = []domain.DocumentField{
		{Label: "Name", Value: doc.Name},
		{Label: "Email", Value: doc.Email},
		{Label: "Phone", Value: doc.Phone},
		{Label: "Message", Value: doc.Message},
	}
	return doc
}

func display(rec domain.RawRecord, key string) string {
	v, ok := rec.Get(key)
	if !ok {
		return domain.Placeholder
	}
	return domain.FormatValue(v)
}
