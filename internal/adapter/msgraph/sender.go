package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/relaymail/relaymail/internal/domain"
	"github.com/relaymail/relaymail/internal/port"
)

const defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

// sendMailRequest is the Graph sendMail envelope. Sent messages are not
// copied into the sender's Sent Items folder.
type sendMailRequest struct {
	Message        message `json:"message"`
	SaveToSentItem bool    `json:"saveToSentItems"`
}

type message struct {
	Subject      string      `json:"subject"`
	Body         itemBody    `json:"body"`
	ToRecipients []recipient `json:"toRecipients"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

// Sender submits messages through the Graph sendMail endpoint scoped to the
// sending address. 202 Accepted is the only success status.
type Sender struct {
	client  *http.Client
	baseURL string
}

func NewSender(client *http.Client) *Sender {
	return &Sender{client: client, baseURL: defaultGraphBaseURL}
}

// NewSenderWithBaseURL points the sender at a different endpoint root; used
// by tests.
func NewSenderWithBaseURL(client *http.Client, baseURL string) *Sender {
	return &Sender{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Sender) Send(ctx context.Context, token, from, to, subject, body string) error {
	payload := sendMailRequest{
		Message: message{
			Subject:      subject,
			Body:         itemBody{ContentType: "Text", Content: body},
			ToRecipients: []recipient{{EmailAddress: emailAddress{Address: to}}},
		},
		SaveToSentItem: false,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sendMail request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", s.baseURL, url.PathEscape(from))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build sendMail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post sendMail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &domain.SendError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return nil
}

var _ port.MailSender = (*Sender)(nil)
