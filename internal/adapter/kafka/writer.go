// Package kafka publishes weather feature rows to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flight-fuel-etl/internal/config"
	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces one message per feature row.
type Writer struct {
	writer    messageWriter
	batchSize int
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured feature topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaFeatureTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, batchSize: cfg.BatchSize, metrics: metrics, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Write publishes the run's feature rows in chunks of the configured batch size.
func (w *Writer) Write(ctx context.Context, run *domain.Run) error {
	if len(run.Features) == 0 {
		return nil
	}
	size := w.batchSize
	if size <= 0 {
		size = len(run.Features)
	}

	msgs := make([]kafkago.Message, 0, size)
	sent := 0
	for i := range run.Features {
		msg, err := serializeToMessage(run.ID, run.Features[i])
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		if len(msgs) == size || i == len(run.Features)-1 {
			if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
				return fmt.Errorf("publish features %d-%d: %w", sent, sent+len(msgs)-1, err)
			}
			sent += len(msgs)
			if w.metrics != nil {
				w.metrics.RowsWritten.WithLabelValues(w.Name()).Add(float64(len(msgs)))
			}
			msgs = msgs[:0]
		}
	}
	w.logger.Info("features published", "run_id", run.ID, "messages", sent)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a FeatureRow into a Kafka message keyed by
// route so rows for the same airport pair share a partition.
func serializeToMessage(runID string, row domain.FeatureRow) (kafkago.Message, error) {
	row.RunID = runID
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature row for tail %q: %w", row.Flight.TailNumber, err)
	}
	return kafkago.Message{
		Key:   []byte(row.Flight.DepAirport + "-" + row.Flight.ArrAirport),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "processed_at", Value: []byte(row.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
