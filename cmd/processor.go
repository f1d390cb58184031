package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"procodus.dev/plant-processor/internal/pipeline"
	"procodus.dev/plant-processor/internal/processor"
	"procodus.dev/plant-processor/pkg/stream"
)

var processorCmd = &cobra.Command{
	Use:   "processor",
	Short: "Run the telemetry processor",
	Long: `Run the telemetry processor that:
- Consumes sensor readings from the plant-sensors Kafka topic
- Persists readings, care profiles and alerts to PostgreSQL
- Auto-registers unknown plants and assesses their health
- Republishes alerts on Kafka or RabbitMQ
- Pushes plant state to Home Assistant over MQTT
- Exposes Prometheus metrics`,
	RunE: runProcessor,
}

func init() {
	rootCmd.AddCommand(processorCmd)

	flags := processorCmd.Flags()
	flags.String("db-host", "localhost", "PostgreSQL host")
	flags.Int("db-port", 5432, "PostgreSQL port")
	flags.String("db-user", "postgres", "PostgreSQL user")
	flags.String("db-password", "", "PostgreSQL password")
	flags.String("db-name", "plants", "PostgreSQL database name")
	flags.String("db-sslmode", "disable", "PostgreSQL SSL mode")
	flags.StringSlice("kafka-brokers", []string{"localhost:9092"}, "Kafka broker addresses")
	flags.String("sensor-topic", stream.SensorTopic, "Kafka topic carrying sensor readings")
	flags.String("group-id", "plant-processor", "Kafka consumer group id")
	flags.String("alert-topic", stream.AlertTopic, "Kafka topic alerts are republished on")
	flags.String("alert-transport", processor.TransportKafka, "Alert republish channel (kafka, rabbitmq)")
	flags.String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL for the rabbitmq alert transport")
	flags.String("queue-name", "plant-alerts", "RabbitMQ queue name for alerts")
	flags.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker for Home Assistant")
	flags.String("mqtt-client-id", "", "MQTT client id (random if empty)")
	flags.String("mqtt-username", "", "MQTT username")
	flags.String("mqtt-password", "", "MQTT password")
	flags.Int("metrics-port", 9090, "Port serving /metrics and /health")
	flags.Duration("rate-interval", pipeline.DefaultRateInterval, "Window for the inserts-per-second gauge")
	flags.StringSlice("discovery-plants", nil, "Plant IDs announced to Home Assistant discovery")

	// Bind flags to viper
	_ = viper.BindPFlag("processor.db.host", flags.Lookup("db-host"))
	_ = viper.BindPFlag("processor.db.port", flags.Lookup("db-port"))
	_ = viper.BindPFlag("processor.db.user", flags.Lookup("db-user"))
	_ = viper.BindPFlag("processor.db.password", flags.Lookup("db-password"))
	_ = viper.BindPFlag("processor.db.name", flags.Lookup("db-name"))
	_ = viper.BindPFlag("processor.db.sslmode", flags.Lookup("db-sslmode"))
	_ = viper.BindPFlag("processor.kafka.brokers", flags.Lookup("kafka-brokers"))
	_ = viper.BindPFlag("processor.kafka.topic", flags.Lookup("sensor-topic"))
	_ = viper.BindPFlag("processor.kafka.group_id", flags.Lookup("group-id"))
	_ = viper.BindPFlag("processor.kafka.alert_topic", flags.Lookup("alert-topic"))
	_ = viper.BindPFlag("processor.alerts.transport", flags.Lookup("alert-transport"))
	_ = viper.BindPFlag("processor.rabbitmq.url", flags.Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("processor.rabbitmq.queue_name", flags.Lookup("queue-name"))
	_ = viper.BindPFlag("processor.mqtt.broker", flags.Lookup("mqtt-broker"))
	_ = viper.BindPFlag("processor.mqtt.client_id", flags.Lookup("mqtt-client-id"))
	_ = viper.BindPFlag("processor.mqtt.username", flags.Lookup("mqtt-username"))
	_ = viper.BindPFlag("processor.mqtt.password", flags.Lookup("mqtt-password"))
	_ = viper.BindPFlag("processor.metrics.port", flags.Lookup("metrics-port"))
	_ = viper.BindPFlag("processor.rate_interval", flags.Lookup("rate-interval"))
	_ = viper.BindPFlag("processor.discovery.plants", flags.Lookup("discovery-plants"))
}

func runProcessor(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting processor service")

	config := &processor.ServerConfig{
		Logger:          logger,
		DBHost:          viper.GetString("processor.db.host"),
		DBPort:          viper.GetInt("processor.db.port"),
		DBUser:          viper.GetString("processor.db.user"),
		DBPassword:      viper.GetString("processor.db.password"),
		DBName:          viper.GetString("processor.db.name"),
		DBSSLMode:       viper.GetString("processor.db.sslmode"),
		KafkaBrokers:    viper.GetStringSlice("processor.kafka.brokers"),
		SensorTopic:     viper.GetString("processor.kafka.topic"),
		GroupID:         viper.GetString("processor.kafka.group_id"),
		AlertTopic:      viper.GetString("processor.kafka.alert_topic"),
		AlertTransport:  viper.GetString("processor.alerts.transport"),
		RabbitMQURL:     viper.GetString("processor.rabbitmq.url"),
		QueueName:       viper.GetString("processor.rabbitmq.queue_name"),
		MQTTBroker:      viper.GetString("processor.mqtt.broker"),
		MQTTClientID:    viper.GetString("processor.mqtt.client_id"),
		MQTTUsername:    viper.GetString("processor.mqtt.username"),
		MQTTPassword:    viper.GetString("processor.mqtt.password"),
		MetricsPort:     viper.GetInt("processor.metrics.port"),
		RateInterval:    viper.GetDuration("processor.rate_interval"),
		DiscoveryPlants: viper.GetStringSlice("processor.discovery.plants"),
	}

	server, err := processor.NewServer(config)
	if err != nil {
		logger.Error("failed to create processor server", "error", err)
		return err
	}

	logger.Info("processor server configuration",
		"db_host", config.DBHost,
		"db_port", config.DBPort,
		"db_name", config.DBName,
		"kafka_brokers", config.KafkaBrokers,
		"sensor_topic", config.SensorTopic,
		"group_id", config.GroupID,
		"alert_transport", config.AlertTransport,
		"mqtt_broker", config.MQTTBroker,
		"metrics_port", config.MetricsPort,
		"rate_interval", config.RateInterval.String(),
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("processor server error", "error", err)
		return err
	}

	logger.Info("processor server stopped")
	return nil
}

