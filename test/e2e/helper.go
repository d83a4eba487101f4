package e2e

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/uehara/kakine/internal/infrastructure/config"
	"github.com/uehara/kakine/internal/infrastructure/database"
	"github.com/uehara/kakine/internal/repositories/postgres"
	"github.com/uehara/kakine/internal/services/access"
	"github.com/uehara/kakine/internal/services/reconcile"
)

// TestEnv bundles the services under test with their database connection
type TestEnv struct {
	DB         *sql.DB
	Evaluator  *access.Evaluator
	Reconciler *reconcile.Reconciler
}

// skipIfNotIntegration skips the test if INTEGRATION environment variable is not set
func skipIfNotIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION=1 to run")
	}
}

// SetupTestEnv connects to the test database, runs migrations, and wires the
// evaluator and reconciler against real repositories
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	migrationsPath, err := filepath.Abs("../../internal/infrastructure/database/migrations/postgres")
	if err != nil {
		t.Fatalf("Failed to resolve migrations path: %v", err)
	}
	if err := pg.RunMigrations(migrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	grants := postgres.NewPostgresGrantRepository(pg.DB)
	terms := postgres.NewPostgresTermRepository(pg.DB)
	users := postgres.NewPostgresUserRepository(pg.DB)

	return &TestEnv{
		DB:         pg.DB,
		Evaluator:  access.NewEvaluator(grants),
		Reconciler: reconcile.NewReconciler(grants, terms, users),
	}
}

// Cleanup removes all test data and closes the connection
func (env *TestEnv) Cleanup(t *testing.T) {
	t.Helper()

	tables := []string{"term_user_grants", "term_role_grants", "taxonomy_terms", "users"}
	for _, table := range tables {
		if _, err := env.DB.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}

	if err := env.DB.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

// CreateTerm inserts a term row and returns its ID
func (env *TestEnv) CreateTerm(t *testing.T, name string) int64 {
	t.Helper()

	var termID int64
	err := env.DB.QueryRow(`INSERT INTO taxonomy_terms (name) VALUES ($1) RETURNING tid`, name).Scan(&termID)
	if err != nil {
		t.Fatalf("Failed to create term: %v", err)
	}
	return termID
}

// CreateUser inserts a user row
func (env *TestEnv) CreateUser(t *testing.T, userID int64, name string) {
	t.Helper()

	if _, err := env.DB.Exec(`INSERT INTO users (uid, name) VALUES ($1, $2)`, userID, name); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
}
