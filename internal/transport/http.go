package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/joshp123/containment/internal/monitor"
)

const requestTimeout = 10 * time.Second

// HTTPSender POSTs telemetry records as JSON.
type HTTPSender struct {
	endpoint   string
	httpClient *http.Client
}

// OAuthConfig enables client-credentials bearer tokens on the telemetry endpoint.
type OAuthConfig struct {
	TokenURL         string
	ClientID         string
	ClientSecretFile string
	Scopes           []string
}

func NewHTTPSender(endpoint string, httpClient *http.Client) (*HTTPSender, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("telemetry endpoint is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &HTTPSender{endpoint: endpoint, httpClient: httpClient}, nil
}

// NewOAuthHTTPSender wraps the sender's client with a client-credentials token source.
func NewOAuthHTTPSender(ctx context.Context, endpoint string, cfg OAuthConfig) (*HTTPSender, error) {
	secret, err := readSecretFile(cfg.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("read telemetry client secret: %w", err)
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: secret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	client := cc.Client(ctx)
	client.Timeout = requestTimeout
	return NewHTTPSender(endpoint, client)
}

func (s *HTTPSender) Name() string {
	return "http"
}

func (s *HTTPSender) Send(ctx context.Context, record monitor.Telemetry) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: status %d: %s", s.endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
