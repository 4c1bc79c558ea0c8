package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "BACKOFFICE_SKIP_INTEGRATION_TESTS"

// InvoiceStoreSuite is a test suite for the InvoiceStore implementation.
type InvoiceStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       InvoiceStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite initializes the test suite by setting up a PostgreSQL container.
func (s *InvoiceStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "backoffice_db"
	dbUser := "user"
	dbPassword := "password"

	// 1. Start a PostgreSQL container with the specified configuration. Wait for the container to be ready.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	// 2. Get the connection string from the container
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 3. Create a new pgxpool instance using the connection string
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	// 4. Database migration
	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../../db/migrations")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for integration tests")

	s.store = NewPgStore(s.dbPool)
	s.logger.Info("Initialization complete for InvoiceStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *InvoiceStoreSuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info("DB pool closed.")
	}
	if s.pgContainer != nil {
		s.logger.Info("Terminating PostgreSQL container...")
		err := s.pgContainer.Terminate(s.ctx)
		if err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		} else {
			s.logger.Info("PostgreSQL container terminated.")
		}
	}
}

// SetupTest prepares the database for each test by truncating the invoices table.
func (s *InvoiceStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE invoices RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate invoices table")
}

// TestInvoiceStoreIntegration runs the InvoiceStore integration tests.
func TestInvoiceStoreIntegration(t *testing.T) {
	// Skip integration tests if the environment variable is set
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(InvoiceStoreSuite))
}

// createTestInvoice is a helper to persist one invoice with a single line.
func (s *InvoiceStoreSuite) createTestInvoice(userID uuid.UUID, ref string, total int64) (*Invoice, []InvoiceLine) {
	s.T().Helper()
	invoice, lines, err := s.store.CreateInvoice(s.ctx,
		&CreateInvoiceParams{UserID: userID, TotalPrice: total, PaymentReference: ref},
		[]CreateLineParams{{ProductID: uuid.New(), Quantity: 2, UnitPriceAtSale: total / 2}})
	require.NoError(s.T(), err, "createTestInvoice helper failed to create invoice")
	return invoice, lines
}

func (s *InvoiceStoreSuite) TestCreateInvoice() {
	s.SetupTest()
	// given
	userID := uuid.New()

	// when
	invoice, lines := s.createTestInvoice(userID, "PAY-1", 2000)

	// then
	require.NotZero(s.T(), invoice.ID, "Created invoice ID should not be zero")
	require.Equal(s.T(), userID, invoice.UserID)
	require.Equal(s.T(), int64(2000), invoice.TotalPrice)
	require.Equal(s.T(), "PAY-1", invoice.PaymentReference)
	require.NotZero(s.T(), invoice.CreatedAt, "CreatedAt should be set")

	require.Len(s.T(), lines, 1, "Should create one invoice line")
	require.NotZero(s.T(), lines[0].ID, "Created line ID should not be zero")
	require.Equal(s.T(), invoice.ID, lines[0].InvoiceID)
	require.Equal(s.T(), int32(2), lines[0].Quantity)
	require.Equal(s.T(), int64(1000), lines[0].UnitPriceAtSale)
}

func (s *InvoiceStoreSuite) TestCreateInvoice_DuplicatePaymentReference() {
	s.SetupTest()
	// given
	s.createTestInvoice(uuid.New(), "PAY-1", 2000)

	// when
	_, _, err := s.store.CreateInvoice(s.ctx,
		&CreateInvoiceParams{UserID: uuid.New(), TotalPrice: 500, PaymentReference: "PAY-1"},
		[]CreateLineParams{{ProductID: uuid.New(), Quantity: 1, UnitPriceAtSale: 500}})

	// then
	require.ErrorIs(s.T(), err, ErrDuplicatePaymentReference,
		"Expected ErrDuplicatePaymentReference for a reused payment reference")
}

func (s *InvoiceStoreSuite) TestFindByID() {
	s.SetupTest()
	// given
	created, createdLines := s.createTestInvoice(uuid.New(), "PAY-1", 2000)

	// when
	fetched, fetchedLines, err := s.store.FindByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err, "FindByID should not return an error")
	require.Equal(s.T(), created.ID, fetched.ID)
	require.Equal(s.T(), created.UserID, fetched.UserID)
	require.Equal(s.T(), created.TotalPrice, fetched.TotalPrice)
	require.WithinDuration(s.T(), created.CreatedAt, fetched.CreatedAt, time.Second)

	require.Len(s.T(), fetchedLines, 1)
	require.Equal(s.T(), createdLines[0].ID, fetchedLines[0].ID)
	require.Equal(s.T(), createdLines[0].ProductID, fetchedLines[0].ProductID)
	require.Equal(s.T(), createdLines[0].Quantity, fetchedLines[0].Quantity)
	require.Equal(s.T(), createdLines[0].UnitPriceAtSale, fetchedLines[0].UnitPriceAtSale)
}

func (s *InvoiceStoreSuite) TestFindByID_NotFound() {
	s.SetupTest()
	// given (no invoices created)

	// when
	_, _, err := s.store.FindByID(s.ctx, uuid.New())

	// then
	require.ErrorIs(s.T(), err, ErrInvoiceNotFound, "Expected ErrInvoiceNotFound for non-existent invoice")
}

func (s *InvoiceStoreSuite) TestFindByPaymentReference() {
	s.SetupTest()
	// given
	created, _ := s.createTestInvoice(uuid.New(), "PAY-42", 1000)

	// when
	fetched, err := s.store.FindByPaymentReference(s.ctx, "PAY-42")

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), created.ID, fetched.ID)

	// when (unknown reference)
	_, err = s.store.FindByPaymentReference(s.ctx, "PAY-unknown")

	// then
	require.ErrorIs(s.T(), err, ErrInvoiceNotFound)
}

func (s *InvoiceStoreSuite) TestFindByUserID_NewestFirstWithPagination() {
	s.SetupTest()
	// given
	userID := uuid.New()
	s.createTestInvoice(userID, "PAY-1", 100)
	time.Sleep(10 * time.Millisecond)
	second, _ := s.createTestInvoice(userID, "PAY-2", 200)
	time.Sleep(10 * time.Millisecond)
	third, _ := s.createTestInvoice(userID, "PAY-3", 300)
	s.createTestInvoice(uuid.New(), "PAY-other", 999)

	// when
	page, err := s.store.FindByUserID(s.ctx, &FindByUserIDParams{UserID: userID, Offset: 0, Limit: 2})

	// then
	require.NoError(s.T(), err)
	require.Len(s.T(), page, 2)
	require.Equal(s.T(), third.ID, page[0].ID, "Newest invoice should come first")
	require.Equal(s.T(), second.ID, page[1].ID)
}
