package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler exposes the relay endpoints the game client talks to: token
// minting for realtime sessions, and the two completion routes. The
// provider API key never leaves this process.
type Handler struct {
	upstream *Upstream
	limiter  *RateLimiter
	logger   *slog.Logger
}

func NewHandler(upstream *Upstream, limiter *RateLimiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		upstream: upstream,
		limiter:  limiter,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	limited := e.Group("", h.limiter.Middleware())
	limited.POST("/token", h.Token)
	limited.POST("/modeA/describe", h.Describe)
	limited.POST("/modeB/guess", h.Guess)
	e.GET("/health", h.Health)
}

type tokenRequest struct {
	DeviceID    string   `json:"deviceId"`
	Platform    string   `json:"platform"`
	AppVersion  string   `json:"appVersion"`
	GameMode    string   `json:"gameMode"`
	CurrentWord string   `json:"currentWord"`
	TabooWords  []string `json:"tabooWords"`
}

type describeRequest struct {
	Word          string   `json:"word"`
	Taboo         []string `json:"taboo"`
	PreviousHints []string `json:"previousHints"`
}

type guessRequest struct {
	TranscriptSoFar string   `json:"transcriptSoFar"`
	Category        string   `json:"category"`
	PreviousGuesses []string `json:"previousGuesses"`
}

// Token mints an ephemeral realtime credential for one game session.
func (h *Handler) Token(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.DeviceID == "" || req.GameMode == "" {
		return badRequest(c, "Missing required fields: deviceId, gameMode")
	}

	h.logger.Info("minting realtime token",
		"device_id", req.DeviceID,
		"platform", req.Platform,
		"game_mode", req.GameMode,
	)

	cred, err := h.upstream.MintCredential(c.Request().Context(), sessionInstructions(req))
	if err != nil {
		return h.upstreamFailure(c, "token mint failed", err)
	}

	return c.JSON(http.StatusOK, cred)
}

// sessionInstructions seeds the realtime session with the game context
// so the voice model plays its side of the round.
func sessionInstructions(req tokenRequest) string {
	switch req.GameMode {
	case "modeA":
		var b strings.Builder
		b.WriteString("You are the host of a voice speed quiz game. Describe the secret word so the user can guess it. Never say the word itself.")
		if req.CurrentWord != "" {
			fmt.Fprintf(&b, " The secret word is %q.", req.CurrentWord)
		}
		if len(req.TabooWords) > 0 {
			fmt.Fprintf(&b, " Never use these taboo words: %s.", strings.Join(req.TabooWords, ", "))
		}
		return b.String()
	case "modeB":
		return "You are a player in a voice speed quiz game. The user describes a secret word; listen and make one direct guess at a time. Never ask questions."
	default:
		return ""
	}
}

// Describe returns one fresh hint for the word.
func (h *Handler) Describe(c echo.Context) error {
	var req describeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Word == "" || req.Taboo == nil {
		return badRequest(c, "Missing required fields: word, taboo")
	}

	h.logger.Info("describe request", "word", req.Word, "prior_hints", len(req.PreviousHints))

	text, err := h.upstream.Complete(c.Request().Context(), describePrompt(req.Word, req.Taboo, req.PreviousHints), describeMaxTokens)
	if err != nil {
		return h.upstreamFailure(c, "describe completion failed", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"text": text})
}

// Guess returns the model's one guess for the transcript so far.
func (h *Handler) Guess(c echo.Context) error {
	var req guessRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.TranscriptSoFar == "" || req.Category == "" {
		return badRequest(c, "Missing required fields: transcriptSoFar, category")
	}

	h.logger.Info("guess request", "category", req.Category, "prior_guesses", len(req.PreviousGuesses))

	guess, err := h.upstream.Complete(c.Request().Context(), guessPrompt(req.TranscriptSoFar, req.Category, req.PreviousGuesses), guessMaxTokens)
	if err != nil {
		return h.upstreamFailure(c, "guess completion failed", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"guessText": guess})
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

// upstreamFailure mirrors provider errors downstream with their status;
// anything else is an opaque 500.
func (h *Handler) upstreamFailure(c echo.Context, msg string, err error) error {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		h.logger.Error(msg, "status", upstreamErr.Status, "error", err)
		return c.JSON(upstreamErr.Status, map[string]string{
			"error":   "OpenAI API failed",
			"details": upstreamErr.Body,
		})
	}
	h.logger.Error(msg, "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
