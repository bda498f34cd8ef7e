// Package gigachat implements the chat-completion provider backed by the
// GigaChat API: OAuth token issuance against the NGW endpoint and
// completions against the OpenAI-compatible chat API.
package gigachat

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"promopost/internal/resilience/retry"
)

const (
	defaultTokenURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	defaultAPIBase  = "https://gigachat.devices.sberbank.ru/api/v1"
	defaultModel    = "GigaChat"

	// oauthScope selects the personal API tier.
	oauthScope = "scope=GIGACHAT_API_PERS"
)

// Token is a short-lived access token issued for a credential seed.
type Token struct {
	AccessToken string
	// ExpiresAt is the provider-reported expiry. The cache applies its own
	// configured TTL and treats this value as informational.
	ExpiresAt time.Time
}

// ClientConfig holds the GigaChat client configuration.
type ClientConfig struct {
	// TokenURL is the OAuth token issuance endpoint.
	TokenURL string

	// APIBase is the base URL of the OpenAI-compatible completion API.
	APIBase string

	// Model is the completion model identifier.
	Model string

	// Timeout bounds a single HTTP request. Zero means no client timeout;
	// resilience is handled by the outer retry policy.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification. The GigaChat
	// endpoints use the Russian trusted root CA, which is absent from most
	// system stores.
	InsecureSkipVerify bool
}

// DefaultClientConfig returns the production GigaChat endpoints.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		TokenURL:           defaultTokenURL,
		APIBase:            defaultAPIBase,
		Model:              defaultModel,
		Timeout:            60 * time.Second,
		InsecureSkipVerify: true,
	}
}

// Client talks to the GigaChat API. It is stateless: token caching is the
// TokenCache's job, and retries are applied by the callers.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient creates a GigaChat client from the given configuration.
func NewClient(cfg ClientConfig) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		// #nosec G402 -- the provider's CA chain is not in system stores.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// tokenResponse mirrors the NGW OAuth response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix milliseconds
}

// IssueToken requests a fresh access token for the given credential seed.
// The seed is passed through as-is in the Basic authorization header; the
// request carries a unique RqUID per provider contract.
func (c *Client) IssueToken(ctx context.Context, seed string) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(oauthScope))
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.Header.Set("Authorization", "Basic "+seed)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Token{}, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Token{}, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    "token endpoint: " + strings.TrimSpace(string(body)),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, fmt.Errorf("token endpoint returned empty access_token")
	}

	return Token{
		AccessToken: tr.AccessToken,
		ExpiresAt:   time.UnixMilli(tr.ExpiresAt),
	}, nil
}

// Complete issues a single non-streaming chat completion: system carries the
// steering context, user carries the topic. The completion text is returned
// verbatim; length and format checks belong to the caller.
func (c *Client) Complete(ctx context.Context, accessToken, system, user string) (string, error) {
	cfg := openai.DefaultConfig(accessToken)
	cfg.BaseURL = c.cfg.APIBase
	cfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
