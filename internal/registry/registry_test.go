package registry_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"procodus.dev/plant-processor/internal/registry"
	"procodus.dev/plant-processor/pkg/plant"
)

// memoryStore is an unsynchronized-by-contract profile store that keeps every
// inserted row, duplicates included.
type memoryStore struct {
	mu        sync.Mutex
	rows      []*plant.CareProfile
	findErr   error
	createErr error
}

func (m *memoryStore) FindProfile(_ context.Context, plantID string) (*plant.CareProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, p := range m.rows {
		if p.PlantID == plantID {
			return p, nil
		}
	}
	return nil, registry.ErrNotFound
}

func (m *memoryStore) CreateProfile(_ context.Context, profile *plant.CareProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	m.rows = append(m.rows, profile)
	return nil
}

func (m *memoryStore) count(plantID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, p := range m.rows {
		if p.PlantID == plantID {
			n++
		}
	}
	return n
}

var _ = Describe("Registry", func() {
	var (
		ctx     context.Context
		logger  *slog.Logger
		store   *memoryStore
		svc     *registry.Service
		now     time.Time
		reading *plant.SensorReading
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		store = &memoryStore{}
		now = time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)

		var err error
		svc, err = registry.New(&registry.Config{
			Logger: logger,
			Store:  store,
			Now:    func() time.Time { return now },
		})
		Expect(err).NotTo(HaveOccurred())

		reading = &plant.SensorReading{
			Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			PlantID:   "plant-002",
			PlantType: "sansevieria",
			Location:  "Bedroom",
		}
	})

	Describe("New", func() {
		It("should reject a nil config", func() {
			_, err := registry.New(nil)
			Expect(err).To(MatchError(ContainSubstring("config cannot be nil")))
		})

		It("should reject a missing logger", func() {
			_, err := registry.New(&registry.Config{Store: store})
			Expect(err).To(MatchError(ContainSubstring("logger")))
		})

		It("should reject a missing store", func() {
			_, err := registry.New(&registry.Config{Logger: logger})
			Expect(err).To(MatchError(ContainSubstring("store")))
		})
	})

	Describe("Find", func() {
		It("should report an unregistered plant as not found", func() {
			_, err := svc.Find(ctx, "plant-404")
			Expect(err).To(MatchError(registry.ErrNotFound))
		})

		It("should wrap store failures", func() {
			store.findErr = errors.New("connection reset")

			_, err := svc.Find(ctx, "plant-002")
			Expect(err).To(MatchError(ContainSubstring("connection reset")))
			Expect(errors.Is(err, registry.ErrNotFound)).To(BeFalse())
		})
	})

	Describe("AutoProvision", func() {
		It("should persist the type's defaults and return the profile", func() {
			profile, err := svc.AutoProvision(ctx, reading)
			Expect(err).NotTo(HaveOccurred())

			Expect(profile.PlantID).To(Equal("plant-002"))
			Expect(profile.PlantType).To(Equal("sansevieria"))
			Expect(profile.Name).To(Equal("Sansevieria (plant-002)"))
			Expect(profile.Location).To(Equal("Bedroom"))
			Expect(profile.MoistureMin).To(Equal(20.0))
			Expect(profile.MoistureMax).To(Equal(40.0))
			Expect(profile.LightMin).To(Equal(200.0))
			Expect(profile.WateringFrequency).To(Equal("14 days"))
			Expect(profile.AutoRegistered).To(BeTrue())
			Expect(profile.FirstSeenTimestamp).To(Equal(reading.Timestamp))
			Expect(profile.LastWatered).To(Equal(now))

			found, err := svc.Find(ctx, "plant-002")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(Equal(profile))
		})

		It("should fall back to generic defaults for an unrecognized type", func() {
			reading.PlantType = "cactus"

			profile, err := svc.AutoProvision(ctx, reading)
			Expect(err).NotTo(HaveOccurred())

			generic, _ := registry.DefaultsFor(registry.UnknownType)
			Expect(profile.PlantType).To(Equal("cactus"))
			Expect(profile.MoistureMin).To(Equal(generic.MoistureMin))
			Expect(profile.MoistureMax).To(Equal(generic.MoistureMax))
		})

		It("should wrap store failures", func() {
			store.createErr = errors.New("disk full")

			profile, err := svc.AutoProvision(ctx, reading)
			Expect(err).To(MatchError(ContainSubstring("disk full")))
			Expect(profile).To(BeNil())
		})

		It("should accept duplicate rows when provisioning the same plant twice", func() {
			_, err := svc.AutoProvision(ctx, reading)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.AutoProvision(ctx, reading)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.count("plant-002")).To(Equal(2))
		})
	})
})

var _ = Describe("Defaults", func() {
	DescribeTable("DefaultsFor",
		func(plantType string, known bool, moistureMin, moistureMax float64) {
			d, ok := registry.DefaultsFor(plantType)
			Expect(ok).To(Equal(known))
			Expect(d.MoistureMin).To(Equal(moistureMin))
			Expect(d.MoistureMax).To(Equal(moistureMax))
		},
		Entry("monstera", "monstera", true, 40.0, 60.0),
		Entry("sansevieria", "sansevieria", true, 20.0, 40.0),
		Entry("pothos", "pothos", true, 30.0, 50.0),
		Entry("unknown itself", registry.UnknownType, true, 30.0, 60.0),
		Entry("unrecognized", "ficus", false, 30.0, 60.0),
		Entry("case sensitive", "Monstera", false, 30.0, 60.0),
	)

	It("should list the dedicated plant types", func() {
		Expect(registry.KnownTypes()).To(ConsistOf("monstera", "sansevieria", "pothos"))
	})

	Describe("NewProfile", func() {
		It("should default an empty type and location", func() {
			now := time.Now().UTC()
			profile := registry.NewProfile(&plant.SensorReading{PlantID: "plant-009"}, now)

			Expect(profile.PlantType).To(Equal(registry.UnknownType))
			Expect(profile.Name).To(Equal("Unknown (plant-009)"))
			Expect(profile.Location).To(Equal("Unknown Location"))
		})

		It("should capitalize a type that starts with a multi-byte character", func() {
			now := time.Now().UTC()
			profile := registry.NewProfile(&plant.SensorReading{PlantID: "plant-9", PlantType: "érable"}, now)

			Expect(profile.PlantType).To(Equal("érable"))
			Expect(profile.Name).To(Equal("Érable (plant-9)"))
			Expect(utf8.ValidString(profile.Name)).To(BeTrue())
		})
	})
})
