package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/config"
	"github.com/couchcryptid/pukaar-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher publishes discovered service records to a Kafka topic, one
// message per record keyed by identity key.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured discovery topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishBatch writes every record of the batch in a single WriteMessages
// call. Batches without records are not published.
func (p *Publisher) PublishBatch(ctx context.Context, batch domain.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Records))
	for i := range batch.Records {
		msg, err := serializeToMessage(batch, batch.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish batch %s: %w", batch.ID, err)
	}
	p.logger.Debug("batch published", "batch_id", batch.ID, "records", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals one record of a batch into a Kafka message.
func serializeToMessage(batch domain.Batch, record domain.ServiceRecord) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize service record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(record.IdentityKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "batch_id", Value: []byte(batch.ID)},
			{Key: "category", Value: []byte(record.Category)},
			{Key: "source", Value: []byte(batch.Source)},
			{Key: "outcome", Value: []byte(batch.Outcome)},
			{Key: "fetched_at", Value: []byte(batch.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
