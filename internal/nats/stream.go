package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/paintquote-ai/quote-platform/internal/model"
)

const (
	// StreamName is the name of the quote lifecycle stream.
	StreamName = "QUOTES"

	// SubjectPrefix is the prefix for all quote subjects.
	SubjectPrefix = "quote"
)

// StreamManager handles JetStream stream operations for quote events.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the quotes stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Quote session lifecycle events and finalized quotes",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for a quote event.
func EventSubject(companyID, sessionID string, eventType model.EventType) string {
	if companyID == "" {
		companyID = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, companyID, sessionID, eventType)
}

// Publish publishes a quote lifecycle event to JetStream.
func (m *StreamManager) Publish(ctx context.Context, event *model.QuoteEvent) error {
	subject := EventSubject(event.CompanyID, event.SessionID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := m.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
