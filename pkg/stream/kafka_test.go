package stream_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/segmentio/kafka-go"
	metadataAPI "github.com/segmentio/kafka-go/protocol/metadata"
	produceAPI "github.com/segmentio/kafka-go/protocol/produce"

	"procodus.dev/plant-processor/pkg/stream"
	"procodus.dev/plant-processor/pkg/stream/mock"
)

// instantBroker answers metadata and produce requests immediately with a
// single-partition topic.
type instantBroker struct {
	produced atomic.Int32
}

func (b *instantBroker) RoundTrip(_ context.Context, _ net.Addr, req kafka.Request) (kafka.Response, error) {
	switch r := req.(type) {
	case *metadataAPI.Request:
		res := &metadataAPI.Response{
			Brokers: []metadataAPI.ResponseBroker{{NodeID: 1, Host: "127.0.0.1", Port: 9092}},
		}
		for _, topic := range r.TopicNames {
			res.Topics = append(res.Topics, metadataAPI.ResponseTopic{
				Name:       topic,
				Partitions: []metadataAPI.ResponsePartition{{PartitionIndex: 0, LeaderID: 1}},
			})
		}
		return res, nil
	case *produceAPI.Request:
		b.produced.Add(1)
		res := &produceAPI.Response{}
		for _, topic := range r.Topics {
			rt := produceAPI.ResponseTopic{Topic: topic.Topic}
			for _, p := range topic.Partitions {
				rt.Partitions = append(rt.Partitions, produceAPI.ResponsePartition{Partition: p.Partition})
			}
			res.Topics = append(res.Topics, rt)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unexpected request %T", req)
	}
}

var _ = Describe("Kafka stream", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	})

	Describe("NewReader", func() {
		It("should create a consumer-group reader", func() {
			reader, err := stream.NewReader(&stream.ReaderConfig{
				Logger:  logger,
				Topic:   stream.SensorTopic,
				GroupID: "plant-processor",
				Brokers: []string{"127.0.0.1:1"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(reader.Config().Topic).To(Equal("plant-sensors"))
			Expect(reader.Config().GroupID).To(Equal("plant-processor"))
			Expect(reader.Close()).To(Succeed())
		})

		DescribeTable("should validate its config",
			func(cfg *stream.ReaderConfig, msg string) {
				if cfg != nil && msg != "logger" {
					cfg.Logger = logger
				}
				_, err := stream.NewReader(cfg)
				Expect(err).To(MatchError(ContainSubstring(msg)))
			},
			Entry("nil config", nil, "config"),
			Entry("logger", &stream.ReaderConfig{Topic: "t", GroupID: "g", Brokers: []string{"b"}}, "logger"),
			Entry("brokers", &stream.ReaderConfig{Topic: "t", GroupID: "g"}, "brokers"),
			Entry("topic", &stream.ReaderConfig{GroupID: "g", Brokers: []string{"b"}}, "topic"),
			Entry("group", &stream.ReaderConfig{Topic: "t", Brokers: []string{"b"}}, "group id"),
		)
	})

	Describe("NewWriter", func() {
		It("should create a key-hashing writer for the topic", func() {
			writer, err := stream.NewWriter(&stream.WriterConfig{
				Logger:  logger,
				Topic:   stream.AlertTopic,
				Brokers: []string{"127.0.0.1:1"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Topic).To(Equal("plant-alerts"))
			Expect(writer.Balancer).To(BeAssignableToTypeOf(&kafka.Hash{}))
			Expect(writer.Close()).To(Succeed())
		})

		It("should flush a single message without waiting for a full batch", func() {
			writer, err := stream.NewWriter(&stream.WriterConfig{
				Logger:  logger,
				Topic:   stream.AlertTopic,
				Brokers: []string{"127.0.0.1:9092"},
			})
			Expect(err).NotTo(HaveOccurred())
			broker := &instantBroker{}
			writer.Transport = broker
			defer writer.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			start := time.Now()
			Expect(writer.WriteMessages(ctx, kafka.Message{
				Key:   []byte("plant-001"),
				Value: []byte(`{"type":"WATER_NEEDED"}`),
			})).To(Succeed())

			Expect(time.Since(start)).To(BeNumerically("<", 200*time.Millisecond))
			Expect(broker.produced.Load()).To(BeEquivalentTo(1))
		})

		It("should require brokers and a topic", func() {
			_, err := stream.NewWriter(&stream.WriterConfig{Logger: logger, Topic: "t"})
			Expect(err).To(MatchError(ContainSubstring("brokers")))

			_, err = stream.NewWriter(&stream.WriterConfig{Logger: logger, Brokers: []string{"b"}})
			Expect(err).To(MatchError(ContainSubstring("topic")))
		})
	})

	Describe("Ping", func() {
		It("should fail when no broker is reachable", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			err := stream.Ping(ctx, []string{"127.0.0.1:1"})
			Expect(err).To(MatchError(ContainSubstring("no kafka broker reachable")))
		})

		It("should reject an empty broker list", func() {
			Expect(stream.Ping(context.Background(), nil)).To(HaveOccurred())
		})
	})

	Describe("mock", func() {
		It("should return io.EOF from a closed reader", func() {
			reader := mock.NewMockReader(1)
			Expect(reader.Close()).To(Succeed())

			_, err := reader.FetchMessage(context.Background())
			Expect(err).To(MatchError(io.EOF))
		})
	})
})
