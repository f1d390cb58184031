// Package testcontainers starts the infrastructure the e2e suites run against.
package testcontainers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"procodus.dev/plant-processor/internal/storage"
)

// PostgresConfig holds configuration for the PostgreSQL test container.
type PostgresConfig struct {
	// User defaults to plants
	User string
	// Password defaults to plants
	Password string
	// Database defaults to plants_test
	Database string
	// ContainerName is optional
	ContainerName string
}

func (c *PostgresConfig) withDefaults() *PostgresConfig {
	out := PostgresConfig{}
	if c != nil {
		out = *c
	}
	if out.User == "" {
		out.User = "plants"
	}
	if out.Password == "" {
		out.Password = "plants"
	}
	if out.Database == "" {
		out.Database = "plants_test"
	}
	return &out
}

// StartPostgres starts a PostgreSQL container and returns it together with a
// storage.DBConfig pointing at it. The caller sets the Logger and terminates the container.
func StartPostgres(ctx context.Context, config *PostgresConfig) (testcontainers.Container, *storage.DBConfig, error) {
	cfg := config.withDefaults()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			),
			Env: map[string]string{
				"POSTGRES_USER":     cfg.User,
				"POSTGRES_PASSWORD": cfg.Password,
				"POSTGRES_DB":       cfg.Database,
			},
			Name: cfg.ContainerName,
		},
		Started: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, nil, terminate(ctx, container, fmt.Errorf("failed to get container host: %w", err))
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, nil, terminate(ctx, container, fmt.Errorf("failed to get container port: %w", err))
	}

	return container, &storage.DBConfig{
		Host:     host,
		Port:     port.Int(),
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.Database,
		SSLMode:  "disable",
	}, nil
}

// Stop terminates container, logging instead of failing so suites can clean up the rest.
func Stop(ctx context.Context, container testcontainers.Container, logger *slog.Logger) {
	if container == nil {
		return
	}
	logger.Info("stopping container", "container_id", container.GetContainerID())
	if err := container.Terminate(ctx); err != nil {
		logger.Error("failed to stop container", "error", err)
	}
}

func terminate(ctx context.Context, container testcontainers.Container, err error) error {
	if termErr := container.Terminate(ctx); termErr != nil {
		return fmt.Errorf("%w (cleanup error: %w)", err, termErr)
	}
	return err
}
