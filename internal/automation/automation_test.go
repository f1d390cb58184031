package automation_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"procodus.dev/plant-processor/internal/automation"
	"procodus.dev/plant-processor/pkg/plant"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
	failOn   string
}

func (f *fakePublisher) record(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	if f.failOn != "" && strings.Contains(topic, f.failOn) {
		return errors.New("publish rejected")
	}
	f.messages = append(f.messages, published{topic: topic, payload: payload, retained: retained})
	return nil
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	return f.record(topic, payload, false)
}

func (f *fakePublisher) PublishRetained(_ context.Context, topic string, payload []byte) error {
	return f.record(topic, payload, true)
}

var _ = Describe("Automation", func() {
	var (
		ctx    context.Context
		logger *slog.Logger
		pub    *fakePublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		pub = &fakePublisher{}
	})

	Describe("topics", func() {
		It("should replace dashes in the entity id", func() {
			Expect(automation.EntityID("plant-001")).To(Equal("plant_plant_001"))
			Expect(automation.StateTopic("plant-001")).To(Equal("homeassistant/sensor/plant_plant_001/state"))
		})

		It("should derive one discovery topic per sensor", func() {
			topic := automation.DiscoveryTopic("plant-002", automation.DefaultSensors[0])
			Expect(topic).To(Equal("homeassistant/sensor/plant_plant_002_moisture/config"))
		})
	})

	Describe("StateUpdater", func() {
		var (
			updater    *automation.StateUpdater
			reading    *plant.SensorReading
			assessment *plant.Assessment
		)

		BeforeEach(func() {
			var err error
			updater, err = automation.NewStateUpdater(pub, logger)
			Expect(err).NotTo(HaveOccurred())

			reading = &plant.SensorReading{
				Timestamp: time.Now().UTC(),
				PlantID:   "plant-001",
				PlantType: "monstera",
				Sensors:   plant.Sensors{SoilMoisture: 70, LightLevel: 900, Temperature: 22, Humidity: 50},
			}
			assessment = &plant.Assessment{HealthScore: 80, Status: plant.StatusNeedsAttention}
		})

		It("should reject missing dependencies", func() {
			_, err := automation.NewStateUpdater(nil, logger)
			Expect(err).To(HaveOccurred())
			_, err = automation.NewStateUpdater(pub, nil)
			Expect(err).To(HaveOccurred())
		})

		It("should publish a flat, non-retained snapshot on the state topic", func() {
			Expect(updater.Update(ctx, reading, assessment)).To(Succeed())

			Expect(pub.messages).To(HaveLen(1))
			msg := pub.messages[0]
			Expect(msg.topic).To(Equal("homeassistant/sensor/plant_plant_001/state"))
			Expect(msg.retained).To(BeFalse())

			var snap map[string]interface{}
			Expect(json.Unmarshal(msg.payload, &snap)).To(Succeed())
			Expect(snap).To(HaveKeyWithValue("moisture", 70.0))
			Expect(snap).To(HaveKeyWithValue("health", 80.0))
			Expect(snap).To(HaveKeyWithValue("light", 900.0))
			Expect(snap).To(HaveKeyWithValue("temperature", 22.0))
			Expect(snap).To(HaveKeyWithValue("status", "needs_attention"))
			Expect(snap).To(HaveKey("last_updated"))
			Expect(snap).NotTo(HaveKey("battery"))
		})

		It("should include the battery level when the sensor reports one", func() {
			level := 42.5
			reading.Metadata = &plant.Metadata{BatteryLevel: &level}

			snap := automation.NewSnapshot(reading, assessment, time.Now())
			Expect(snap.Battery).NotTo(BeNil())
			Expect(*snap.Battery).To(Equal(42.5))
		})

		It("should return publish errors without panicking", func() {
			pub.err = errors.New("not connected")

			err := updater.Update(ctx, reading, assessment)
			Expect(err).To(MatchError(automation.ErrPublish))
			Expect(err).To(MatchError(ContainSubstring("not connected")))
		})
	})

	Describe("Announce", func() {
		It("should publish a retained config per plant and sensor", func() {
			failed := automation.Announce(ctx, pub, []string{"plant-001", "plant-002"}, logger)

			Expect(failed).To(BeZero())
			Expect(pub.messages).To(HaveLen(2 * len(automation.DefaultSensors)))
			for _, msg := range pub.messages {
				Expect(msg.retained).To(BeTrue())
				Expect(msg.topic).To(HaveSuffix("/config"))
			}
		})

		It("should describe the sensor with unit, class and template", func() {
			automation.Announce(ctx, pub, []string{"plant-001"}, logger)

			var cfg automation.DiscoveryConfig
			Expect(json.Unmarshal(pub.messages[0].payload, &cfg)).To(Succeed())
			Expect(cfg.Name).To(Equal("Plant 001 Moisture"))
			Expect(cfg.StateTopic).To(Equal("homeassistant/sensor/plant_plant_001/state"))
			Expect(cfg.ValueTemplate).To(Equal("{{ value_json.moisture }}"))
			Expect(cfg.UnitOfMeasurement).To(Equal("%"))
			Expect(cfg.DeviceClass).To(Equal("humidity"))
			Expect(cfg.UniqueID).To(Equal("plant_plant_001_moisture"))
			Expect(cfg.Device.Identifiers).To(ConsistOf("plant_plant_001"))
		})

		It("should continue past failed publishes and count them", func() {
			pub.failOn = "_health/"

			failed := automation.Announce(ctx, pub, []string{"plant-001", "plant-002"}, logger)

			Expect(failed).To(Equal(2))
			Expect(pub.messages).To(HaveLen(2*len(automation.DefaultSensors) - 2))
		})
	})

	Describe("NewMQTTPublisher", func() {
		It("should validate its config", func() {
			_, err := automation.NewMQTTPublisher(nil)
			Expect(err).To(HaveOccurred())

			_, err = automation.NewMQTTPublisher(&automation.MQTTConfig{Broker: "tcp://localhost:1883"})
			Expect(err).To(MatchError(ContainSubstring("logger")))

			_, err = automation.NewMQTTPublisher(&automation.MQTTConfig{Logger: logger})
			Expect(err).To(MatchError(ContainSubstring("broker")))
		})

		It("should not block or fail when the broker is unreachable", func() {
			p, err := automation.NewMQTTPublisher(&automation.MQTTConfig{
				Logger: logger,
				Broker: "tcp://127.0.0.1:1",
			})
			Expect(err).NotTo(HaveOccurred())
			defer p.Close()

			Expect(p.IsConnected()).To(BeFalse())
			Expect(p.Publish(ctx, automation.StateTopic("plant-001"), []byte(`{}`))).To(HaveOccurred())
		})
	})
})
