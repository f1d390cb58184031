package alerts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"procodus.dev/plant-processor/internal/alerts"
	mqmock "procodus.dev/plant-processor/pkg/mq/mock"
	"procodus.dev/plant-processor/pkg/plant"
	streammock "procodus.dev/plant-processor/pkg/stream/mock"
)

type recordingStore struct {
	stored []*plant.Alert
	err    error
}

func (s *recordingStore) StoreAlert(_ context.Context, alert *plant.Alert) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, alert)
	return nil
}

var _ = Describe("Sink", func() {
	var (
		ctx    context.Context
		logger *slog.Logger
		store  *recordingStore
		writer *streammock.MockWriter
		sink   *alerts.Sink
		alert  *plant.Alert
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		store = &recordingStore{}
		writer = streammock.NewMockWriter()

		var err error
		sink, err = alerts.NewSink(&alerts.SinkConfig{
			Logger:   logger,
			Store:    store,
			Notifier: alerts.NewKafkaNotifier(writer),
		})
		Expect(err).NotTo(HaveOccurred())

		alert = &plant.Alert{
			Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			PlantID:   "plant-001",
			Type:      plant.AlertWaterNeeded,
			Severity:  plant.SeverityHigh,
			Message:   "Soil moisture too low: 10.0% (needs 40%+)",
		}
	})

	Describe("NewSink", func() {
		It("should reject a nil config", func() {
			_, err := alerts.NewSink(nil)
			Expect(err).To(HaveOccurred())
		})

		It("should require a store and a notifier", func() {
			_, err := alerts.NewSink(&alerts.SinkConfig{Logger: logger, Notifier: alerts.NewKafkaNotifier(writer)})
			Expect(err).To(MatchError(ContainSubstring("store")))

			_, err = alerts.NewSink(&alerts.SinkConfig{Logger: logger, Store: store})
			Expect(err).To(MatchError(ContainSubstring("notifier")))
		})
	})

	Describe("Emit", func() {
		It("should persist and then republish keyed by plant", func() {
			Expect(sink.Emit(ctx, alert)).To(Succeed())

			Expect(store.stored).To(ConsistOf(alert))

			msgs := writer.Messages()
			Expect(msgs).To(HaveLen(1))
			Expect(string(msgs[0].Key)).To(Equal("plant-001"))

			var decoded map[string]interface{}
			Expect(json.Unmarshal(msgs[0].Value, &decoded)).To(Succeed())
			Expect(decoded).To(HaveKeyWithValue("plantId", "plant-001"))
			Expect(decoded).To(HaveKeyWithValue("type", "WATER_NEEDED"))
			Expect(decoded).To(HaveKeyWithValue("severity", "HIGH"))
			Expect(decoded).To(HaveKeyWithValue("timestamp", "2024-05-01T12:00:00Z"))
		})

		It("should not republish an alert it failed to persist", func() {
			store.err = errors.New("insert failed")

			err := sink.Emit(ctx, alert)
			Expect(err).To(MatchError(alerts.ErrPersist))
			Expect(writer.Messages()).To(BeEmpty())
		})

		It("should report republish failures after persisting", func() {
			writer.WriteError = errors.New("broker unreachable")

			err := sink.Emit(ctx, alert)
			Expect(err).To(MatchError(alerts.ErrNotify))
			Expect(store.stored).To(HaveLen(1))
		})
	})

	Describe("Close", func() {
		It("should close the notifier", func() {
			Expect(sink.Close()).To(Succeed())
			Expect(writer.CloseCalls).To(Equal(1))
		})
	})
})

var _ = Describe("QueueNotifier", func() {
	It("should push the JSON alert onto the queue", func() {
		client := mqmock.NewMockClient()
		notifier := alerts.NewQueueNotifier(client)

		Expect(notifier.Notify(context.Background(), &plant.Alert{
			PlantID:  "plant-003",
			Type:     plant.AlertInsufficientLight,
			Severity: plant.SeverityMedium,
		})).To(Succeed())

		Expect(client.PushCount()).To(Equal(1))
		Expect(string(client.Pushed[0])).To(ContainSubstring(`"type":"INSUFFICIENT_LIGHT"`))
	})

	It("should wrap push failures", func() {
		client := mqmock.NewMockClient()
		client.PushError = errors.New("channel closed")
		notifier := alerts.NewQueueNotifier(client)

		err := notifier.Notify(context.Background(), &plant.Alert{PlantID: "plant-003"})
		Expect(err).To(MatchError(ContainSubstring("channel closed")))
	})

	It("should close the client", func() {
		client := mqmock.NewMockClient()
		Expect(alerts.NewQueueNotifier(client).Close()).To(Succeed())
		Expect(client.CloseCalls).To(Equal(1))
	})
})
