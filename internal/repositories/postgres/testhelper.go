package postgres

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/uehara/kakine/internal/infrastructure/config"
	"github.com/uehara/kakine/internal/infrastructure/database"
)

// skipIfNotIntegration skips the test if INTEGRATION environment variable is not set
func skipIfNotIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION=1 to run")
	}
}

// SetupTestDB creates a test database connection and runs migrations
func SetupTestDB(t *testing.T) *sql.DB {
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

	if err := pg.RunMigrations("../../infrastructure/database/migrations/postgres"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return pg.DB
}

// CleanupTestDB closes the database connection and cleans up test data
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	tables := []string{"term_user_grants", "term_role_grants", "taxonomy_terms", "users"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

// insertTestTerm inserts a term row and returns its ID
func insertTestTerm(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()

	var termID int64
	err := db.QueryRow(`INSERT INTO taxonomy_terms (name) VALUES ($1) RETURNING tid`, name).Scan(&termID)
	if err != nil {
		t.Fatalf("Failed to insert test term: %v", err)
	}
	return termID
}

// insertTestUser inserts a user row
func insertTestUser(t *testing.T, db *sql.DB, userID int64, name string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO users (uid, name) VALUES ($1, $2)`, userID, name)
	if err != nil {
		t.Fatalf("Failed to insert test user: %v", err)
	}
}
