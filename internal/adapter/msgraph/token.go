// Package msgraph adapts the relay's token and mail ports onto the Microsoft
// identity platform and the Graph sendMail API.
package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relaymail/relaymail/internal/domain"
	"github.com/relaymail/relaymail/internal/port"
)

const (
	defaultLoginBaseURL = "https://login.microsoftonline.com"
	graphScope          = "https://graph.microsoft.com/.default"
	defaultTokenTTL     = time.Hour
)

// TokenSource performs client-credentials grants against the per-tenant
// token endpoint. It holds no state; caching belongs to the token cache.
type TokenSource struct {
	client  *http.Client
	baseURL string
}

func NewTokenSource(client *http.Client) *TokenSource {
	return &TokenSource{client: client, baseURL: defaultLoginBaseURL}
}

// NewTokenSourceWithBaseURL points the source at a different endpoint root;
// used by tests.
func NewTokenSourceWithBaseURL(client *http.Client, baseURL string) *TokenSource {
	return &TokenSource{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *TokenSource) Grant(ctx context.Context, tenantID, clientID, clientSecret string) (domain.Token, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"scope":         {graphScope},
		"grant_type":    {"client_credentials"},
	}

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", s.baseURL, tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Token{}, &domain.AuthError{TenantID: tenantID, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Token{}, &domain.AuthError{TenantID: tenantID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Token{}, &domain.AuthError{TenantID: tenantID, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Token{}, &domain.AuthError{
			TenantID: tenantID,
			Err:      fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var grant struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &grant); err != nil {
		return domain.Token{}, &domain.AuthError{TenantID: tenantID, Err: fmt.Errorf("decode token response: %w", err)}
	}
	if grant.AccessToken == "" {
		return domain.Token{}, &domain.AuthError{TenantID: tenantID, Err: fmt.Errorf("token response without access_token")}
	}

	ttl := time.Duration(grant.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return domain.Token{AccessToken: grant.AccessToken, ExpiresIn: ttl}, nil
}

var _ port.TokenSource = (*TokenSource)(nil)
