package bootstrap

import (
	"log/slog"

	"github.com/eygwak/voice-quiz/internal/relay"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideUpstream(cfg *Config) *relay.Upstream {
	return relay.NewUpstream(relay.UpstreamConfig{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		CompletionModel: cfg.CompletionModel,
		RealtimeModel:   cfg.RealtimeModel,
		SecretsURL:      cfg.SecretsURL,
	})
}

func ProvideRateLimiter(cfg *Config, redisClient *redis.Client, logger *slog.Logger) *relay.RateLimiter {
	return relay.NewRateLimiter(redisClient, cfg.RateLimitWindow, cfg.RateLimitMax, logger)
}

func ProvideRelayHandler(upstream *relay.Upstream, limiter *relay.RateLimiter, logger *slog.Logger) *relay.Handler {
	return relay.NewHandler(upstream, limiter, logger)
}

func RegisterRoutes(e *echo.Echo, handler *relay.Handler) {
	handler.RegisterRoutes(e)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideUpstream,
		ProvideRateLimiter,
		ProvideRelayHandler,
	),
	fx.Invoke(RegisterRoutes),
)
