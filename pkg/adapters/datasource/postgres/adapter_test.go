package postgres

import (
	"strings"
	"testing"
)

func TestFromMap_ValidConfig(t *testing.T) {
	config := map[string]any{
		"host":     "localhost",
		"port":     float64(5432), // JSON numbers are float64
		"user":     "testuser",
		"password": "testpass",
		"database": "testdb",
		"ssl_mode": "disable",
	}

	cfg, err := FromMap(config)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Host != "localhost" {
		t.Errorf("expected host 'localhost', got '%s'", cfg.Host)
	}
	if cfg.Port != 5432 {
		t.Errorf("expected port 5432, got %d", cfg.Port)
	}
	if cfg.User != "testuser" {
		t.Errorf("expected user 'testuser', got '%s'", cfg.User)
	}
	if cfg.Password != "testpass" {
		t.Errorf("expected password 'testpass', got '%s'", cfg.Password)
	}
	if cfg.Database != "testdb" {
		t.Errorf("expected database 'testdb', got '%s'", cfg.Database)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("expected ssl_mode 'disable', got '%s'", cfg.SSLMode)
	}
}

func TestFromMap_IntPort(t *testing.T) {
	config := map[string]any{
		"host":     "localhost",
		"port":     5433, // int instead of float64
		"user":     "testuser",
		"database": "testdb",
	}

	cfg, err := FromMap(config)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 5433 {
		t.Errorf("expected port 5433, got %d", cfg.Port)
	}
}

func TestFromMap_Defaults(t *testing.T) {
	config := map[string]any{
		"host":     "localhost",
		"user":     "testuser",
		"database": "testdb",
	}

	cfg, err := FromMap(config)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != DefaultPort() {
		t.Errorf("expected default port %d, got %d", DefaultPort(), cfg.Port)
	}
	if cfg.SSLMode != DefaultSSLMode() {
		t.Errorf("expected default ssl_mode %q, got %q", DefaultSSLMode(), cfg.SSLMode)
	}
}

func TestFromMap_DSN(t *testing.T) {
	config := map[string]any{
		"dsn": "postgresql://u:p@db.example.com:5432/sales",
	}

	cfg, err := FromMap(config)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.DSN != "postgresql://u:p@db.example.com:5432/sales" {
		t.Errorf("unexpected DSN: %s", cfg.DSN)
	}
}

func TestFromMap_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr string
	}{
		{
			name:    "missing host",
			config:  map[string]any{"user": "u", "database": "d"},
			wantErr: "host is required",
		},
		{
			name:    "missing user",
			config:  map[string]any{"host": "h", "database": "d"},
			wantErr: "user is required",
		},
		{
			name:    "missing database",
			config:  map[string]any{"host": "h", "user": "u"},
			wantErr: "database is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.config)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestBuildConnectionString_EscapesSpecialCharacters(t *testing.T) {
	cfg := &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "user@corp",
		Password: "p@ss/word#1",
		Database: "testdb",
		SSLMode:  "disable",
	}

	connStr := buildConnectionString(cfg)

	if strings.Contains(connStr, "p@ss/word#1") {
		t.Error("password was not URL-escaped in connection string")
	}
	if !strings.HasPrefix(connStr, "postgresql://") {
		t.Errorf("unexpected scheme in connection string: %s", connStr)
	}
	if !strings.Contains(connStr, "sslmode=disable") {
		t.Errorf("ssl mode missing from connection string: %s", connStr)
	}
}

func TestBuildConnectionString_DSNPassthrough(t *testing.T) {
	cfg := &Config{DSN: "postgresql://u:p@h:5432/d?sslmode=require"}

	if got := buildConnectionString(cfg); got != cfg.DSN {
		t.Errorf("expected DSN passthrough, got %s", got)
	}
}
