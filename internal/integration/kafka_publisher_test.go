//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/adapter/fallback"
	"github.com/couchcryptid/pukaar-service/internal/adapter/kafka"
	"github.com/couchcryptid/pukaar-service/internal/config"
	"github.com/couchcryptid/pukaar-service/internal/discovery"
	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/couchcryptid/pukaar-service/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-service-discoveries"

// publishedMessage holds a deserialized message read from the discovery topic.
type publishedMessage struct {
	Record  domain.ServiceRecord
	Key     string
	Headers map[string]string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("pukaar-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from discovery topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.ServiceRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal discovery message")
	return publishedMessage{Record: rec, Key: string(msg.Key), Headers: headers}
}

type failingGeodata struct{}

func (failingGeodata) FetchNearby(context.Context, domain.Point) ([]domain.RawElement, error) {
	return nil, errors.New("network is unreachable")
}

// TestFetchCyclePublishesBatch runs a cycle that falls back to the static
// dataset and checks every record lands on the topic with batch headers.
func TestFetchCyclePublishesBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	dataset := fallback.NewSource("../../json/data.json", nil)
	finder := discovery.NewFinder(discovery.Config{DefaultReference: domain.DefaultReference},
		failingGeodata{}, dataset, observability.NewMetricsForTesting(), discardLogger(), publisher)

	res, err := finder.NewSession().FindNearby(ctx, discovery.Request{})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeRemoteError, res.Outcome)
	require.NotEmpty(t, res.Records)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	keys := make(map[string]bool, res.Total)
	for range res.Total {
		pm := readPublished(ctx, t, consumer)
		assert.Equal(t, pm.Record.IdentityKey, pm.Key)
		assert.Equal(t, res.BatchID, pm.Headers["batch_id"])
		assert.Equal(t, string(pm.Record.Category), pm.Headers["category"])
		assert.Equal(t, "fallback", pm.Headers["source"])
		assert.Equal(t, "remote_error", pm.Headers["outcome"])
		_, err := time.Parse(time.RFC3339, pm.Headers["fetched_at"])
		assert.NoError(t, err, "fetched_at should be valid RFC3339")
		require.NotNil(t, pm.Record.DistanceKm)
		keys[pm.Key] = true
	}
	assert.Len(t, keys, res.Total)
}

// TestEmptyBatchIsNotPublished checks that a cycle with no data leaves the
// topic untouched.
func TestEmptyBatchIsNotPublished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	publisher := kafka.NewPublisher(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishBatch(ctx, domain.Batch{ID: "empty", Records: []domain.ServiceRecord{}}))

	conn, err := kafkago.DialLeader(ctx, "tcp", broker, testTopic, 0)
	require.NoError(t, err)
	defer conn.Close()
	last, err := conn.ReadLastOffset()
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)
}
