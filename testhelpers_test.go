//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/haulwise/service-dispatch/internal/application"
	bookingDomain "github.com/haulwise/service-dispatch/internal/domain/booking"
	fleetDomain "github.com/haulwise/service-dispatch/internal/domain/fleet"
	dispatchEvents "github.com/haulwise/service-dispatch/internal/events"
	"github.com/haulwise/service-dispatch/internal/repository"
	"github.com/haulwise/service-dispatch/migrations"
	"github.com/haulwise/service-dispatch/pkg/database"
	"github.com/haulwise/service-dispatch/pkg/kafka"
)

const (
	testBookingTopic   = "test.dispatch.booking-events"
	testTelemetryTopic = "test.telemetry.driver-locations"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// dispatchStack holds wired-up service components.
type dispatchStack struct {
	Bookings        *application.BookingService
	Drivers         *application.DriverService
	Sync            *application.ResourceSynchronizer
	BookingRepo     *repository.GormBookingRepository
	VehicleRepo     *repository.GormVehicleRepository
	EmployeeRepo    *repository.GormEmployeeRepository
	Consumer        *dispatchEvents.DriverLocationConsumer
	CleanupProducer func()
}

// setupPostgres starts a PostgreSQL container and applies the embedded migrations.
func setupPostgres(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_dispatch",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_dispatch",
		SSLMode:  "disable",
	}

	// Poll until the database accepts connections.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, zap.NewNop())
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(db, migrations.FS, ".", zap.NewNop()))

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}
	return db, cleanup
}

// setupContainers starts PostgreSQL and Kafka testcontainers.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	db, cleanupPG := setupPostgres(t)

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, testBookingTopic, testTelemetryTopic)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		cleanupPG()
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupDispatchStack wires up the services. With no brokers events are dropped.
func setupDispatchStack(t *testing.T, db *gorm.DB, brokers []string) *dispatchStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	bookingRepo := repository.NewGormBookingRepository(db)
	vehicleRepo := repository.NewGormVehicleRepository(db)
	employeeRepo := repository.NewGormEmployeeRepository(db)
	proofRepo := repository.NewGormProofRepository(db)
	ids := bookingDomain.NewIdentifierGenerator(repository.NewGormCounterRepository(db))

	var publisher application.EventPublisher = application.NopPublisher{}
	cleanupProducer := func() {}
	if len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, logger)
		publisher = producer
		cleanupProducer = func() { _ = producer.Close() }
	}

	sync := application.NewResourceSynchronizer(bookingRepo, vehicleRepo, employeeRepo, publisher, testBookingTopic, nil, time.UTC, logger)
	bookings := application.NewBookingService(bookingRepo, vehicleRepo, ids, sync, publisher, testBookingTopic, nil, time.UTC, logger)
	drivers := application.NewDriverService(bookingRepo, proofRepo, sync, publisher, testBookingTopic, nil, logger)

	stack := &dispatchStack{
		Bookings:        bookings,
		Drivers:         drivers,
		Sync:            sync,
		BookingRepo:     bookingRepo,
		VehicleRepo:     vehicleRepo,
		EmployeeRepo:    employeeRepo,
		CleanupProducer: cleanupProducer,
	}
	if len(brokers) > 0 {
		groupID := fmt.Sprintf("test-dispatch-%s", uuid.New().String()[:8])
		stack.Consumer = dispatchEvents.NewDriverLocationConsumer(brokers, groupID, testTelemetryTopic, drivers, logger)
	}
	return stack
}

// seedFleet registers a vehicle and a driver and returns their IDs.
func seedFleet(t *testing.T, stack *dispatchStack) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	vehicle, err := fleetDomain.NewVehicle("abc-1234", "10-wheeler", 12000)
	require.NoError(t, err)
	require.NoError(t, stack.VehicleRepo.Save(ctx, vehicle))

	driver, err := fleetDomain.NewEmployee("Juan Dela Cruz", "Driver", "+63 917 000 0000")
	require.NoError(t, err)
	require.NoError(t, stack.EmployeeRepo.Save(ctx, driver))

	return vehicle.ID(), driver.ID()
}

// bookingRequest builds a request with the given number of stops.
func bookingRequest(vehicleID, driverID uuid.UUID, date time.Time, stops int) application.BookingRequest {
	dests := make([]application.DestinationRequest, stops)
	for i := range dests {
		dests[i] = application.DestinationRequest{
			CustomerEstablishmentName: fmt.Sprintf("Store %d", i+1),
			DestinationAddress:        fmt.Sprintf("%d Rizal Ave, Manila", 100+i),
			ProductName:               "Canned goods",
			Quantity:                  10,
			GrossWeight:               120,
			UnitPerPackage:            24,
			NumberOfPackages:          10,
		}
	}
	return application.BookingRequest{
		CompanyName:           "Acme Foods",
		OriginAddress:         "Warehouse 5, Pasig",
		DestinationDeliveries: dests,
		VehicleID:             vehicleID,
		DateNeeded:            date.Format("2006-01-02"),
		TimeNeeded:            "08:00",
		EmployeeAssigned:      []uuid.UUID{driverID},
		RoleOfEmployee:        []string{"Driver"},
		DeliveryFee:           2500,
		TotalDistance:         42,
	}
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
