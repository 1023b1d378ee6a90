// Package event publishes explorer domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/domain"
	pkgkafka "github.com/darshil44/AI-Powered-Content-Explorer/pkg/kafka"
)

// Kafka topic constants for explorer domain events.
const (
	TopicUserRegistered = "explorer.user.registered"
	TopicToolInvoked    = "explorer.tool.invoked"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from the explorer API.
const SourceExplorerAPI = "explorer-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ToolInvokedData is the payload for a tool.invoked event. Cached indicates
// whether the result came from the cache instead of the provider.
type ToolInvokedData struct {
	UserID   string          `json:"user_id"`
	Kind     domain.ToolKind `json:"kind"`
	Input    string          `json:"input"`
	Cached   bool            `json:"cached"`
	RecordID string          `json:"record_id,omitempty"`
}

// Producer publishes explorer domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the explorer API.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Email: user.Email,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceExplorerAPI, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishToolInvoked publishes a tool.invoked event.
func (p *Producer) PublishToolInvoked(ctx context.Context, data ToolInvokedData) error {
	event, err := pkgkafka.NewEvent(TopicToolInvoked, data.UserID, AggregateTypeUser, SourceExplorerAPI, data)
	if err != nil {
		return fmt.Errorf("create tool.invoked event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicToolInvoked, event); err != nil {
		return fmt.Errorf("publish tool.invoked event: %w", err)
	}

	p.logger.DebugContext(ctx, "published tool.invoked event",
		slog.String("user_id", data.UserID),
		slog.String("kind", string(data.Kind)),
		slog.Bool("cached", data.Cached),
	)

	return nil
}
