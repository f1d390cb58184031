package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"procodus.dev/plant-processor/internal/producer"
	"procodus.dev/plant-processor/pkg/metrics"
	"procodus.dev/plant-processor/pkg/stream"
)

var generatorCmd = &cobra.Command{
	Use:   "generator",
	Short: "Run the sensor generator",
	Long: `Run the sensor generator that:
- Simulates plant sensors with daily light and temperature cycles
- Publishes JSON readings to the plant-sensors Kafka topic keyed by plant ID
- Exposes Prometheus metrics for the simulated values`,
	RunE: runGenerator,
}

func init() {
	rootCmd.AddCommand(generatorCmd)

	flags := generatorCmd.Flags()
	flags.StringSlice("kafka-brokers", []string{"localhost:9092"}, "Kafka broker addresses")
	flags.String("topic", stream.SensorTopic, "Kafka topic to publish readings to")
	flags.Int("sensor-count", 3, "Number of simulated plant sensors")
	flags.Duration("interval", 30*time.Second, "Interval between readings from each sensor")
	flags.Int("metrics-port", 9091, "Port serving /metrics and /health (0 disables)")

	// Bind flags to viper
	_ = viper.BindPFlag("generator.kafka.brokers", flags.Lookup("kafka-brokers"))
	_ = viper.BindPFlag("generator.kafka.topic", flags.Lookup("topic"))
	_ = viper.BindPFlag("generator.sensor_count", flags.Lookup("sensor-count"))
	_ = viper.BindPFlag("generator.interval", flags.Lookup("interval"))
	_ = viper.BindPFlag("generator.metrics.port", flags.Lookup("metrics-port"))
}

func runGenerator(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting generator service")

	brokers := viper.GetStringSlice("generator.kafka.brokers")
	topic := viper.GetString("generator.kafka.topic")

	writer, err := stream.NewWriter(&stream.WriterConfig{
		Logger:  logger,
		Topic:   topic,
		Brokers: brokers,
	})
	if err != nil {
		logger.Error("failed to create stream writer", "error", err)
		return err
	}

	config := &producer.ServerConfig{
		Logger:      logger,
		Writer:      writer,
		SensorCount: viper.GetInt("generator.sensor_count"),
		Interval:    viper.GetDuration("generator.interval"),
		MetricsPort: viper.GetInt("generator.metrics.port"),
		Metrics:     metrics.NewProducerMetrics(metrics.Namespace),
	}

	server, err := producer.NewServer(config)
	if err != nil {
		_ = writer.Close()
		logger.Error("failed to create generator server", "error", err)
		return err
	}

	logger.Info("generator server configuration",
		"kafka_brokers", brokers,
		"topic", topic,
		"sensor_count", config.SensorCount,
		"interval", config.Interval,
		"metrics_port", config.MetricsPort,
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("generator server error", "error", err)
		return err
	}

	logger.Info("generator server stopped")
	return nil
}
