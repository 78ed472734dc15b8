package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/config"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes annotated grid cells to a Kafka topic, one message per cell.
// It implements pipeline.Presenter.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured cell topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// CellMessage is the JSON value of a published cell.
type CellMessage struct {
	RunID       string               `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Source      string               `json:"source"`
	Cell        domain.AnnotatedCell `json:"cell"`
}

// Present serializes every cell of the report and publishes them in a single
// WriteMessages call.
func (w *Writer) Present(ctx context.Context, report domain.Report) error {
	if len(report.Cells) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(report.Cells))
	for i := range report.Cells {
		msg, err := serializeToMessage(report, report.Cells[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish cells: %w", err)
	}
	w.logger.Info("cells published", "run_id", report.RunID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one cell into a Kafka message keyed by its grid key, so
// the same cell always lands on the same partition across runs.
func serializeToMessage(report domain.Report, cell domain.AnnotatedCell) (kafkago.Message, error) {
	data, err := json.Marshal(CellMessage{
		RunID:       report.RunID,
		GeneratedAt: report.GeneratedAt,
		Source:      report.Source,
		Cell:        cell,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cell %s: %w", cell.Key(), err)
	}
	return kafkago.Message{
		Key:   []byte(cell.Key().String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(report.RunID)},
			{Key: "depth_category", Value: []byte(cell.DepthCategory)},
			{Key: "cluster_id", Value: []byte(strconv.Itoa(cell.ClusterID))},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
