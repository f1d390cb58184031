package storage_test

import (
	"io"
	"log/slog"

	"github.com/DATA-DOG/go-sqlmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/postgres"

	"procodus.dev/plant-processor/internal/storage"
)

var _ = Describe("Database", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	})

	Describe("NewDB", func() {
		It("should return error when config is nil", func() {
			db, err := storage.NewDB(nil)
			Expect(err).To(MatchError(ContainSubstring("config cannot be nil")))
			Expect(db).To(BeNil())
		})

		It("should return error when logger is nil", func() {
			db, err := storage.NewDB(&storage.DBConfig{Host: "localhost", Port: 5432})
			Expect(err).To(MatchError(ContainSubstring("logger")))
			Expect(db).To(BeNil())
		})

		It("should fail when the server is unreachable", func() {
			db, err := storage.NewDB(&storage.DBConfig{
				Logger:  logger,
				Host:    "127.0.0.1",
				Port:    1,
				User:    "test",
				DBName:  "plants",
				SSLMode: "disable",
			})
			Expect(err).To(HaveOccurred())
			Expect(db).To(BeNil())
		})
	})

	Describe("DSN", func() {
		It("should render a libpq connection string", func() {
			cfg := &storage.DBConfig{
				Host:     "db",
				Port:     5433,
				User:     "plants",
				Password: "secret",
				DBName:   "telemetry",
				SSLMode:  "require",
			}
			Expect(cfg.DSN()).To(Equal("host=db port=5433 user=plants password=secret dbname=telemetry sslmode=require"))
		})
	})

	Describe("CloseDB", func() {
		It("should accept a nil handle", func() {
			Expect(storage.CloseDB(nil, logger)).To(Succeed())
		})

		It("should close the underlying connection pool", func() {
			sqlDB, mock, err := sqlmock.New()
			Expect(err).NotTo(HaveOccurred())

			db, err := storage.Open(postgres.New(postgres.Config{Conn: sqlDB}))
			Expect(err).NotTo(HaveOccurred())

			mock.ExpectClose()
			Expect(storage.CloseDB(db, logger)).To(Succeed())
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})
	})
})
