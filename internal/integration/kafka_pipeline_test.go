//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/catalog"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/kafka"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/sqlite"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/config"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/observability"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/pipeline"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/render"
)

const testCellTopic = "test-cells"

// Two events share the (-7.0, 110.0) cell; one row is malformed and one is below M3.
const testCatalog = "latitude\tlongitude\tmagnitude\tdepth\n" +
	"-7.02\t110.04\t5.0\t30\n" +
	"-6.98\t109.96\t6.5\t65\n" +
	"-8.1\t115.2\t4.2\t150\n" +
	"-6.0\t120.0\t7.1\t560\n" +
	"-2.5\t100.3\t3.4\t12\n" +
	"-3.0\tn/a\t4.0\t20\n" +
	"-4.0\t101.0\t2.1\t15\n"

// cellMessage holds a deserialized message read from the cell topic.
type cellMessage struct {
	Value   kafka.CellMessage
	Key     string
	Headers map[string]string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("quakemap-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer func() { _ = ctrlConn.Close() }()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}))
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "katalog.tsv")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))
	return path
}

// readCells reads n messages from the cell topic and deserializes them.
func readCells(ctx context.Context, t *testing.T, consumer *kafkago.Reader, n int) map[string]cellMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out := make(map[string]cellMessage, n)
	for len(out) < n {
		msg, err := consumer.ReadMessage(readCtx)
		require.NoError(t, err, "read from cell topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		var value kafka.CellMessage
		require.NoError(t, json.Unmarshal(msg.Value, &value), "unmarshal cell message")
		out[string(msg.Key)] = cellMessage{Value: value, Key: string(msg.Key), Headers: headers}
	}
	return out
}

// TestPipelineEndToEnd runs the full pipeline against a real broker and checks that the
// published cells, the archived run and the GeoJSON export describe the same report.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testCellTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testCellTopic,
	}
	logger := discardLogger()

	writer := kafka.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = writer.Close() })

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "runs.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	outDir := t.TempDir()
	p := pipeline.New(
		catalog.NewReader(writeCatalog(t), logger),
		domain.NewDepthClusterer(domain.DefaultClusterParams()),
		[]pipeline.Presenter{render.NewGeoJSONWriter(outDir, nil, logger), store, writer},
		logger,
		observability.NewMetricsForTesting(),
	)

	report, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Cells, 4)
	assert.Equal(t, domain.FilterStats{Read: 7, Incomplete: 1, BelowMagnitude: 1, Kept: 5}, report.Stats)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testCellTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	published := readCells(ctx, t, consumer, len(report.Cells))
	for _, cell := range report.Cells {
		msg, ok := published[cell.Key().String()]
		require.True(t, ok, "cell %s not published", cell.Key())
		assert.Equal(t, cell, msg.Value.Cell)
		assert.Equal(t, report.RunID, msg.Value.RunID)
		assert.Equal(t, report.RunID, msg.Headers["run_id"])
		assert.Equal(t, string(cell.DepthCategory), msg.Headers["depth_category"])
		assert.Equal(t, strconv.Itoa(cell.ClusterID), msg.Headers["cluster_id"])
		_, err := time.Parse(time.RFC3339, msg.Headers["generated_at"])
		assert.NoError(t, err, "generated_at should be valid RFC3339")
	}

	merged := published["-7.0,110.0"].Value.Cell
	assert.Equal(t, 2, merged.EventCount)
	assert.Equal(t, 6.5, merged.MaxMagnitude)
	assert.Equal(t, 47.5, merged.MeanDepth)
	assert.Equal(t, domain.ColorGreen, merged.Color)

	archived, err := store.CellsForRun(ctx, report.RunID)
	require.NoError(t, err)
	assert.ElementsMatch(t, report.Cells, archived)

	data, err := os.ReadFile(filepath.Join(outDir, render.GeoJSONFile))
	require.NoError(t, err)
	var fc render.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, report.RunID, fc.RunID)
	assert.Len(t, fc.Features, len(report.Cells))
}

// TestPipelineFallbackPublishes checks that an opted-in fallback run still reaches the
// broker when the catalog is missing.
func TestPipelineFallbackPublishes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := testCellTopic + "-fallback"
	createTopic(t, broker, topic)

	logger := discardLogger()
	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: topic}, logger)
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(
		catalog.NewReader(filepath.Join(t.TempDir(), "missing.tsv"), logger),
		domain.NewDepthClusterer(domain.DefaultClusterParams()),
		[]pipeline.Presenter{writer},
		logger,
		observability.NewMetricsForTesting(),
		pipeline.WithFallback(domain.PlaceholderEvent()),
	)

	report, err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.UsedFallback)
	require.Len(t, report.Cells, 1)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	published := readCells(ctx, t, consumer, 1)
	msg, ok := published["-7.0,110.0"]
	require.True(t, ok)
	assert.Equal(t, 5.0, msg.Value.Cell.MaxMagnitude)
	assert.Equal(t, 50.0, msg.Value.Cell.MeanDepth)
}
