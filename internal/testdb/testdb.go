//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/phrazzld/posting-api/internal/platform/postgres"
	"github.com/phrazzld/posting-api/internal/redact"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// EnvTestDatabaseURL names the variable holding an existing test database.
const EnvTestDatabaseURL = "POSTING_TEST_DATABASE_URL"

// Container settings used when no database URL is supplied.
const (
	PostgresImage   = "postgres:16-alpine"
	startupTimeout  = 60 * time.Second
	connectTimeout  = 10 * time.Second
	containerDBName = "posting"
	containerUser   = "test"
	containerPass   = "test"
)

var tenantSeq atomic.Int64

// Open returns a pool on a migrated test database and registers cleanup with t.
// Tests are skipped in -short mode.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()
	dsn := strings.TrimSpace(os.Getenv(EnvTestDatabaseURL))
	if dsn == "" {
		dsn = startContainer(t, ctx)
	} else {
		t.Logf("using test database %s", redact.String(dsn))
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		t.Fatalf("test database unreachable: %v", redact.Error(err))
	}

	if err := postgres.Migrate(ctx, db, postgres.MigrateUp, nil); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func startContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	container, err := tcpostgres.Run(ctx,
		PostgresImage,
		tcpostgres.WithDatabase(containerDBName),
		tcpostgres.WithUsername(containerUser),
		tcpostgres.WithPassword(containerPass),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to read container connection string: %v", err)
	}
	return dsn
}

// UniqueTenant returns a tenant ID no other test in the run uses.
func UniqueTenant(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("T%d-%s", tenantSeq.Add(1), uuid.NewString()[:8])
}
