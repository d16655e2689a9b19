package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/timberwood/outreach/internal/config"
	"github.com/timberwood/outreach/internal/pkg/httpretry"
)

// Web3FormsSender delivers mail through the Web3Forms relay API. Used
// on hosts where outbound SMTP ports are blocked.
type Web3FormsSender struct {
	baseURL    string
	accessKey  string
	httpClient httpretry.HTTPDoer
}

// NewWeb3FormsSender creates a Web3Forms transport from config.
func NewWeb3FormsSender(cfg config.Web3FormsConfig) *Web3FormsSender {
	return &Web3FormsSender{
		baseURL:   cfg.BaseURL,
		accessKey: cfg.AccessKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

type web3FormsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Send posts one message to the relay. A 200 with success=false is
// still a delivery failure.
func (s *Web3FormsSender) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("access_key", s.accessKey)
	form.Set("subject", msg.Subject)
	form.Set("name", msg.FromName)
	form.Set("email", msg.FromEmail)
	form.Set("message", msg.HTMLBody)
	form.Set("to", msg.To)
	form.Set("_template", "table")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("web3forms error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed web3FormsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !parsed.Success {
		return fmt.Errorf("web3forms rejected message: %s", parsed.Message)
	}
	return nil
}
