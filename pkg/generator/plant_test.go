package generator_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"procodus.dev/plant-processor/pkg/generator"
)

var _ = Describe("Plant generator", func() {
	var (
		sensor *generator.PlantSensor
		gen    *generator.PlantDataGenerator
		noon   time.Time
	)

	BeforeEach(func() {
		sensor = generator.NewPlantSensor(7)
		gen = generator.NewPlantGenerator(sensor)
		noon = time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	})

	Describe("NewPlantSensor", func() {
		It("should number plants with three digits", func() {
			Expect(sensor.PlantID).To(Equal("plant-007"))
			Expect(generator.NewPlantSensor(123).PlantID).To(Equal("plant-123"))
		})

		It("should pick a known plant type and a location", func() {
			Expect(generator.PlantTypes).To(ContainElement(sensor.PlantType))
			Expect(sensor.Location).To(ContainSubstring(", "))
			Expect(sensor.Installed).To(BeTemporally("<=", time.Now()))
		})
	})

	Describe("BaselineFor", func() {
		It("should return per-type baselines", func() {
			Expect(generator.BaselineFor("sansevieria").LightBase).To(Equal(300.0))
			Expect(generator.BaselineFor("pothos").TempBase).To(Equal(23.0))
		})

		It("should fall back to monstera", func() {
			Expect(generator.BaselineFor("cactus")).To(Equal(generator.BaselineFor("monstera")))
		})
	})

	Describe("values", func() {
		It("should keep moisture and humidity within 0-100%", func() {
			for h := 0; h < 24; h++ {
				t := noon.Add(time.Duration(h) * time.Hour)
				Expect(gen.GenerateSoilMoisture(t)).To(BeNumerically(">=", 0))
				Expect(gen.GenerateSoilMoisture(t)).To(BeNumerically("<=", 100))
				Expect(gen.GenerateHumidity()).To(BeNumerically(">=", 0))
				Expect(gen.GenerateHumidity()).To(BeNumerically("<=", 100))
			}
		})

		It("should be brighter at noon than at midnight", func() {
			midnight := time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC)
			base := generator.BaselineFor(sensor.PlantType)

			Expect(gen.GenerateLightLevel(midnight)).To(BeNumerically("<=", 100))
			Expect(gen.GenerateLightLevel(noon)).To(BeNumerically(">=", base.LightBase))
		})

		It("should drain the battery over time without dropping below 5%", func() {
			fresh := gen.GenerateBatteryLevel(sensor.Installed)
			old := gen.GenerateBatteryLevel(sensor.Installed.Add(365 * 24 * time.Hour))

			Expect(fresh).To(BeNumerically(">", 95))
			Expect(old).To(Equal(5.0))
		})
	})

	Describe("GenerateReading", func() {
		It("should stamp the reading and identify the plant", func() {
			reading := gen.GenerateReading(noon)

			Expect(reading.Validate()).To(Succeed())
			Expect(reading.PlantID).To(Equal("plant-007"))
			Expect(reading.PlantType).To(Equal(sensor.PlantType))
			Expect(reading.Location).To(Equal(sensor.Location))
			Expect(reading.Timestamp).To(Equal(noon))

			level, ok := reading.BatteryLevel()
			Expect(ok).To(BeTrue())
			Expect(level).To(BeNumerically(">=", 5))
		})

		It("should round sensor values to two decimals", func() {
			s := gen.GenerateReading(noon).Sensors
			for _, v := range []float64{s.SoilMoisture, s.LightLevel, s.Temperature, s.Humidity} {
				Expect(v * 100).To(BeNumerically("~", math.Round(v*100), 1e-6))
			}
		})
	})
})

