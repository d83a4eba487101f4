package database

import (
	"testing"

	"github.com/uehara/kakine/internal/infrastructure/config"
)

func TestPostgres_Close(t *testing.T) {
	tests := []struct {
		name    string
		pg      *Postgres
		wantErr bool
	}{
		{
			name:    "nil DB",
			pg:      &Postgres{DB: nil},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pg.Close()
			if (err != nil) != tt.wantErr {
				t.Errorf("Postgres.Close() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPostgres_InvalidConfig(t *testing.T) {
	// Test with invalid configuration that should fail to connect
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     99999,
		User:     "invalid",
		Password: "invalid",
		Database: "invalid",
		SSLMode:  "disable",
	}

	pg, err := NewPostgres(cfg)
	if err == nil {
		if pg != nil && pg.DB != nil {
			pg.Close()
		}
		t.Error("NewPostgres() with invalid config should return error")
	}
}
