package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	matchmigrations "github.com/scuffedaim/matchview/app/modules/match/infrastructure/repositories/migrations"
	"github.com/scuffedaim/matchview/config"
	"github.com/scuffedaim/matchview/db/bundb"
	"github.com/scuffedaim/matchview/integration_tests/containers"
)

// TestEnvironment holds the containers and clients integration tests run against.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	PgConnStr     string
	NatsURL       string
}

// NewTestEnvironment starts Postgres and NATS and applies every migration.
func NewTestEnvironment() (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{Ctx: ctx, CancelContext: cancel}

	pg, connStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		env.Cleanup()
		return nil, err
	}
	env.PgContainer, env.PgConnStr = pg, connStr

	nc, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		env.Cleanup()
		return nil, err
	}
	env.NatsContainer, env.NatsURL = nc, natsURL

	db, err := bundb.NewBunDB(ctx, config.PostgresConfig{DSN: connStr})
	if err != nil {
		env.Cleanup()
		return nil, err
	}
	env.DB = db

	if err := runModuleMigrations(ctx, db, matchmigrations.Migrations, "match"); err != nil {
		env.Cleanup()
		return nil, err
	}
	return env, nil
}

// runModuleMigrations runs migrations for a specific module
func runModuleMigrations(ctx context.Context, db *bun.DB, migrations *migrate.Migrations, name string) error {
	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to init %s migrations: %w", name, err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run %s migrations: %w", name, err)
	}
	if group.ID == 0 {
		log.Printf("No %s migrations to run", name)
	} else {
		log.Printf("Ran %s migrations group #%d", name, group.ID)
	}
	return nil
}

// TruncateTables truncates the specified tables
func (env *TestEnvironment) TruncateTables(t *testing.T, tables ...string) {
	t.Helper()
	if len(tables) == 0 {
		return
	}
	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = fmt.Sprintf("%q", table)
	}
	query := "TRUNCATE TABLE " + strings.Join(quoted, ", ") + " CASCADE"
	if _, err := env.DB.ExecContext(env.Ctx, query); err != nil {
		t.Fatalf("failed to truncate tables %v: %v", tables, err)
	}
}

// Cleanup closes clients and terminates containers.
func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		_ = env.DB.Close()
	}
	if env.NatsContainer != nil {
		if err := env.NatsContainer.Terminate(context.Background()); err != nil {
			log.Printf("Failed to terminate NATS container: %v", err)
		}
	}
	if env.PgContainer != nil {
		if err := env.PgContainer.Terminate(context.Background()); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}
	env.CancelContext()
}
