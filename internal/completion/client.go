// Package completion is the client side of the relay's prompt-completion
// endpoints: Mode A hint fetching and Mode B guess fetching.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// ServerError is a non-200 response from the relay. A 429 is retryable
// later; everything else is not.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("completion request failed: status %d: %s", e.Status, e.Body)
}

func (e *ServerError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests
}

// IsRetryable reports whether the error is a rate-limit rejection the
// caller may retry after backing off.
func IsRetryable(err error) bool {
	var serverErr *ServerError
	return errors.As(err, &serverErr) && serverErr.Retryable()
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type describeRequest struct {
	Word          string   `json:"word"`
	Taboo         []string `json:"taboo"`
	PreviousHints []string `json:"previousHints,omitempty"`
}

type describeResponse struct {
	Text string `json:"text"`
}

// Describe asks the relay for one short hint for the word, avoiding the
// taboo list and anything already said.
func (c *Client) Describe(ctx context.Context, word string, taboo, previousHints []string) (string, error) {
	if taboo == nil {
		taboo = []string{}
	}
	var resp describeResponse
	err := c.post(ctx, "/modeA/describe", describeRequest{
		Word:          word,
		Taboo:         taboo,
		PreviousHints: previousHints,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

type guessRequest struct {
	TranscriptSoFar string   `json:"transcriptSoFar"`
	Category        string   `json:"category"`
	PreviousGuesses []string `json:"previousGuesses,omitempty"`
}

type guessResponse struct {
	GuessText string `json:"guessText"`
}

// Guess asks the relay for the AI's guess given the description so far.
// An empty result means the model produced no guess yet; that is not an
// error.
func (c *Client) Guess(ctx context.Context, transcriptSoFar, category string, previousGuesses []string) (string, error) {
	var resp guessResponse
	err := c.post(ctx, "/modeB/guess", guessRequest{
		TranscriptSoFar: transcriptSoFar,
		Category:        category,
		PreviousGuesses: previousGuesses,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.GuessText, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &ServerError{Status: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
