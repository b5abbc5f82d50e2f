package handler

import (
	"context"
	"log/slog"

	"github.com/gptb70564-code/cw-bot/internal/api/storage"
	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
	"github.com/gptb70564-code/cw-bot/shared/postgresql"
	"github.com/gptb70564-code/cw-bot/shared/rabbitmq"
)

// KeyValidator probes a generation key and reports its health. The genai
// client satisfies this.
type KeyValidator interface {
	ValidateKey(ctx context.Context, apiKey string) domain.KeyStatus
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	KeyValidator KeyValidator
}

// Handler serves the bid-engine HTTP surface: posting ingestion, schedules,
// credentials, and bid history.
type Handler struct {
	logger       *slog.Logger
	storage      *storage.Storage
	rabbitClient *rabbitmq.Client
	keyValidator KeyValidator
}

// NewHandler creates a new Handler instance
func NewHandler(deps *Dependencies) *Handler {
	return &Handler{
		logger:       deps.Logger,
		storage:      storage.NewStorage(deps.DBClient),
		rabbitClient: deps.RabbitClient,
		keyValidator: deps.KeyValidator,
	}
}
