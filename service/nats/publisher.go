package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing approval events to NATS.
type Publisher interface {
	// PublishApproval publishes a single approval event to JetStream.
	PublishApproval(ctx context.Context, event *ApprovalEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// PublishRecorder observes publish outcomes. *metrics.Metrics satisfies it.
type PublishRecorder interface {
	RecordNATSPublish(status string, duration float64)
}

const (
	// StreamName is the name of the JetStream stream for approval events.
	StreamName = "APPROVALS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "approvals.*"

	// StreamRetention is how long messages are retained.
	StreamRetention = 7 * 24 * time.Hour

	subjectPrefix = "approvals."
)

// JetStreamPublisher publishes approval events to NATS JetStream.
type JetStreamPublisher struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	logger   *slog.Logger
	recorder PublishRecorder
}

// Connect dials NATS with the reconnect settings shared by publishers and
// subscribers.
func Connect(natsURL, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists. recorder may be nil.
func NewPublisher(natsURL string, logger *slog.Logger, recorder PublishRecorder) (*JetStreamPublisher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	nc, err := Connect(natsURL, "txnview-publisher")
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:       nc,
		js:       js,
		logger:   logger,
		recorder: recorder,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// JetStream exposes the publisher's JetStream context so consumers can share
// the connection.
func (p *JetStreamPublisher) JetStream() jetstream.JetStream {
	return p.js
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		info, err := stream.Info(ctx)
		if err == nil {
			p.logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Transaction approval changes",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("JetStream stream created successfully", "stream", StreamName)
	return nil
}

// PublishApproval publishes a single approval event.
func (p *JetStreamPublisher) PublishApproval(ctx context.Context, event *ApprovalEvent) error {
	start := time.Now()
	err := p.publish(ctx, event)
	if p.recorder != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.recorder.RecordNATSPublish(status, time.Since(start).Seconds())
	}
	return err
}

func (p *JetStreamPublisher) publish(ctx context.Context, event *ApprovalEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal approval event: %w", err)
	}

	subject := event.Subject()
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish approval: %w", err)
	}

	p.logger.Debug("published approval event",
		"subject", subject,
		"transaction_id", event.TransactionID,
		"approved", event.Approved,
	)
	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
