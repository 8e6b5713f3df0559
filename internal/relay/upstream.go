package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

const (
	defaultCompletionModel = "gpt-4o-mini"
	defaultRealtimeModel   = "gpt-realtime"

	defaultSecretsURL = "https://api.openai.com/v1/realtime/client_secrets"

	completionTemperature = 0.7
	describeMaxTokens     = 100
	guessMaxTokens        = 50
)

// UpstreamError carries a non-2xx response from the model provider so
// handlers can mirror its status downstream.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

type UpstreamConfig struct {
	APIKey          string
	BaseURL         string
	CompletionModel string
	RealtimeModel   string
	SecretsURL      string
	HTTPClient      *http.Client
}

// Upstream talks to the model provider: chat completions for hints and
// guesses, and the client-secrets endpoint for ephemeral realtime
// credentials.
type Upstream struct {
	client        oai.Client
	httpClient    *http.Client
	apiKey        string
	model         string
	realtimeModel string
	secretsURL    string
}

func NewUpstream(cfg UpstreamConfig) *Upstream {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.CompletionModel
	if model == "" {
		model = defaultCompletionModel
	}
	realtimeModel := cfg.RealtimeModel
	if realtimeModel == "" {
		realtimeModel = defaultRealtimeModel
	}
	secretsURL := cfg.SecretsURL
	if secretsURL == "" {
		secretsURL = defaultSecretsURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Upstream{
		client:        oai.NewClient(opts...),
		httpClient:    httpClient,
		apiKey:        cfg.APIKey,
		model:         model,
		realtimeModel: realtimeModel,
		secretsURL:    secretsURL,
	}
}

// Complete runs one single-message chat completion and returns the
// model's text.
func (u *Upstream) Complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	completion, err := u.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(u.model),
		Messages:    []oai.ChatCompletionMessageParamUnion{oai.UserMessage(prompt)},
		Temperature: param.NewOpt(completionTemperature),
		MaxTokens:   param.NewOpt(maxTokens),
	})
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Status: apiErr.StatusCode, Body: apiErr.RawJSON()}
		}
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

// EphemeralCredential is a short-lived realtime token.
type EphemeralCredential struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

type clientSecretRequest struct {
	Session clientSecretSession `json:"session"`
}

type clientSecretSession struct {
	Type         string `json:"type"`
	Model        string `json:"model"`
	Instructions string `json:"instructions,omitempty"`
}

// MintCredential asks the provider for an ephemeral realtime token.
// The SDK has no surface for this endpoint, so it goes over raw HTTP.
func (u *Upstream) MintCredential(ctx context.Context, instructions string) (EphemeralCredential, error) {
	payload, err := json.Marshal(clientSecretRequest{
		Session: clientSecretSession{
			Type:         "realtime",
			Model:        u.realtimeModel,
			Instructions: instructions,
		},
	})
	if err != nil {
		return EphemeralCredential{}, fmt.Errorf("encode secret request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.secretsURL, bytes.NewReader(payload))
	if err != nil {
		return EphemeralCredential{}, fmt.Errorf("build secret request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return EphemeralCredential{}, fmt.Errorf("mint credential: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return EphemeralCredential{}, fmt.Errorf("read secret response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return EphemeralCredential{}, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var cred EphemeralCredential
	if err := json.Unmarshal(body, &cred); err != nil {
		return EphemeralCredential{}, fmt.Errorf("decode secret response: %w", err)
	}
	if cred.Value == "" {
		return EphemeralCredential{}, fmt.Errorf("secret response missing value")
	}
	return cred, nil
}
