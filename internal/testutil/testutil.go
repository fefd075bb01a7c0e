package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/vault"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"

	"land-review/internal/database"
	"land-review/migrations"
)

// TestContainers holds references to test containers
type TestContainers struct {
	PostgresContainer *postgres.PostgresContainer
	VaultContainer    *vault.VaultContainer
	MinioContainer    testcontainers.Container
	DB                *sql.DB
	DBConnString      string
	VaultToken        string
	VaultAddr         string
	MinioEndpoint     string
	MinioAccessKey    string
	MinioSecretKey    string
}

// SetupPostgres starts PostgreSQL and applies the embedded migrations
func SetupPostgres(t *testing.T) *TestContainers {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:18",
		postgres.WithDatabase("landreview_test"),
		postgres.WithUsername("landreview_test"),
		postgres.WithPassword("landreview_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	tc := &TestContainers{PostgresContainer: postgresContainer}
	t.Cleanup(func() { tc.Cleanup(t) })

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}
	tc.DBConnString = connStr

	db, err := database.Open(connStr, 10, 5, time.Minute)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	tc.DB = db.DB

	if err := database.NewMigrationExecutor(db.DB).RunMigrations(migrations.FS); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return tc
}

// SetupVault starts a dev mode Vault server
func SetupVault(t *testing.T) *TestContainers {
	t.Helper()
	ctx := context.Background()

	vaultContainer, err := vault.Run(ctx,
		"hashicorp/vault:1.15",
		vault.WithToken("test-token"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Vault server started!").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start Vault container: %v", err)
	}
	tc := &TestContainers{VaultContainer: vaultContainer, VaultToken: "test-token"}
	t.Cleanup(func() { tc.Cleanup(t) })

	vaultAddr, err := vaultContainer.HttpHostAddress(ctx)
	if err != nil {
		t.Fatalf("Failed to get Vault address: %v", err)
	}
	if !strings.HasPrefix(vaultAddr, "http") {
		vaultAddr = "http://" + vaultAddr
	}
	tc.VaultAddr = vaultAddr
	return tc
}

// SetupMinio starts a MinIO server for blob storage tests
func SetupMinio(t *testing.T) *TestContainers {
	t.Helper()
	ctx := context.Background()

	const accessKey, secretKey = "minio-test", "minio-test-secret"
	minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     accessKey,
				"MINIO_ROOT_PASSWORD": secretKey,
			},
			WaitingFor: wait.ForHTTP("/minio/health/live").
				WithPort("9000/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MinIO container: %v", err)
	}
	tc := &TestContainers{MinioContainer: minioContainer, MinioAccessKey: accessKey, MinioSecretKey: secretKey}
	t.Cleanup(func() { tc.Cleanup(t) })

	host, err := minioContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get MinIO host: %v", err)
	}
	port, err := minioContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		t.Fatalf("Failed to get MinIO port: %v", err)
	}
	tc.MinioEndpoint = fmt.Sprintf("%s:%s", host, port.Port())
	return tc
}

// Cleanup terminates all started containers
func (tc *TestContainers) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tc.DB != nil {
		tc.DB.Close()
		tc.DB = nil
	}

	if tc.PostgresContainer != nil {
		if err := tc.PostgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
		tc.PostgresContainer = nil
	}

	if tc.VaultContainer != nil {
		if err := tc.VaultContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate Vault container: %v", err)
		}
		tc.VaultContainer = nil
	}

	if tc.MinioContainer != nil {
		if err := tc.MinioContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate MinIO container: %v", err)
		}
		tc.MinioContainer = nil
	}
}
