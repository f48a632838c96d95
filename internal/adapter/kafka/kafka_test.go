package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
)

type fakeWriter struct {
	batches [][]kafkago.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	batch := make([]kafkago.Message, len(msgs))
	copy(batch, msgs)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testRow(tail string) domain.FeatureRow {
	return domain.FeatureRow{
		Flight: domain.Flight{
			Date: "2024-01-15", TailNumber: tail, Model: "CRJ9",
			DepAirport: "ATL", ArrAirport: "DTW", DurationMin: domain.Float64(90),
		},
		Fuel:        domain.FuelAdjustment{FuelRateKgPerHr: 1050, ExtraFuelKg: 12.5},
		ProcessedAt: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	row := testRow("N123")

	msg, err := serializeToMessage("run-1", row)
	require.NoError(t, err)

	assert.Equal(t, []byte("ATL-DTW"), msg.Key)

	var decoded domain.FeatureRow
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "N123", decoded.Flight.TailNumber)
	assert.InDelta(t, 12.5, decoded.Fuel.ExtraFuelKg, 1e-9)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(row.ProcessedAt.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestWriter_ChunksByBatchSize(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, batchSize: 2, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	run := &domain.Run{ID: "run-1"}
	for _, tail := range []string{"N1", "N2", "N3", "N4", "N5"} {
		run.Features = append(run.Features, testRow(tail))
	}

	require.NoError(t, w.Write(context.Background(), run))
	require.Len(t, fw.batches, 3)
	assert.Len(t, fw.batches[0], 2)
	assert.Len(t, fw.batches[1], 2)
	assert.Len(t, fw.batches[2], 1)
	assert.Contains(t, string(fw.batches[2][0].Value), `"N5"`)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestWriter_EmptyRunPublishesNothing(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, batchSize: 2, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Write(context.Background(), &domain.Run{ID: "run-1"}))
	assert.Empty(t, fw.batches)
}

func TestWriter_PropagatesBrokerError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("leader not available")}
	w := &Writer{writer: fw, batchSize: 10, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.Write(context.Background(), &domain.Run{ID: "run-1", Features: []domain.FeatureRow{testRow("N1")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, "kafka", w.Name())
}
