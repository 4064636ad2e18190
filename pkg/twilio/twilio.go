package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	AccountSID  string        `split_words:"true" required:"true"`
	AuthToken   string        `split_words:"true" required:"true"`
	PhoneNumber string        `split_words:"true" required:"true"`
	BaseURL     string        `split_words:"true" default:"https://api.twilio.com"`
	Timeout     time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL     string
	accountSID  string
	authToken   string
	phoneNumber string
	httpClient  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	accountSID := strings.TrimSpace(cfg.AccountSID)
	if accountSID == "" {
		return nil, errors.New("twilio account sid is required")
	}
	authToken := strings.TrimSpace(cfg.AuthToken)
	if authToken == "" {
		return nil, errors.New("twilio auth token is required")
	}
	phoneNumber := strings.TrimSpace(cfg.PhoneNumber)
	if phoneNumber == "" {
		return nil, errors.New("twilio phone number is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accountSID:  accountSID,
		authToken:   authToken,
		phoneNumber: phoneNumber,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Call is the subset of Twilio's call resource the service reads back.
type Call struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
}

// StartCall places an outbound call that fetches its call flow from
// webhookURL once the callee answers.
func (c *Client) StartCall(ctx context.Context, to, webhookURL string) (*Call, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, errors.New("destination phone number is required")
	}
	if strings.TrimSpace(webhookURL) == "" {
		return nil, errors.New("webhook url is required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.phoneNumber)
	form.Set("Url", webhookURL)
	form.Set("Method", http.MethodPost)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return nil, fmt.Errorf("twilio: unexpected status %d: %s", resp.StatusCode, detail)
	}

	var call Call
	if err := json.Unmarshal(body, &call); err != nil {
		return nil, fmt.Errorf("twilio: decode call resource: %w", err)
	}
	return &call, nil
}
