// Package credential fetches short-lived realtime credentials from the
// relay server. One credential authorizes exactly one connection
// attempt; the broker never caches or retries.
package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eygwak/voice-quiz/internal/shared"
)

type Credential struct {
	Value     string
	ExpiresAt time.Time
}

func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ServerError carries a non-200 response from the relay.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("token request failed: status %d: %s", e.Status, e.Body)
}

type Broker struct {
	baseURL    string
	deviceID   string
	appVersion string
	httpClient *http.Client
}

type BrokerConfig struct {
	BaseURL    string
	DeviceID   string
	AppVersion string
	HTTPClient *http.Client
}

func NewBroker(cfg BrokerConfig) *Broker {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	deviceID := cfg.DeviceID
	if deviceID == "" {
		deviceID = shared.NewID("dev_")
	}
	return &Broker{
		baseURL:    cfg.BaseURL,
		deviceID:   deviceID,
		appVersion: cfg.AppVersion,
		httpClient: client,
	}
}

type tokenRequest struct {
	DeviceID   string   `json:"deviceId"`
	Platform   string   `json:"platform"`
	AppVersion string   `json:"appVersion"`
	GameMode   string   `json:"gameMode"`
	Word       string   `json:"currentWord,omitempty"`
	TabooWords []string `json:"tabooWords,omitempty"`
}

type tokenResponse struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// Request obtains one ephemeral credential for the given round.
func (b *Broker) Request(ctx context.Context, mode shared.GameMode, word string, taboo []string) (Credential, error) {
	body, err := json.Marshal(tokenRequest{
		DeviceID:   b.deviceID,
		Platform:   "go",
		AppVersion: b.appVersion,
		GameMode:   mode.String(),
		Word:       word,
		TabooWords: taboo,
	})
	if err != nil {
		return Credential{}, fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/token", bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credential{}, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Credential{}, &ServerError{Status: resp.StatusCode, Body: string(data)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return Credential{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.Value == "" {
		return Credential{}, fmt.Errorf("token response missing value")
	}

	cred := Credential{Value: tr.Value}
	if tr.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	}
	return cred, nil
}
