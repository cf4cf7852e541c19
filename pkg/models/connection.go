package models

import (
	"time"

	"github.com/google/uuid"
)

// Connection lifecycle states.
const (
	ConnectionStatusValidating = "validating"
	ConnectionStatusActive     = "active"
	ConnectionStatusFailed     = "failed"
)

// Supported connection types.
const (
	ConnectionTypePostgres  = "postgres"
	ConnectionTypeSQLServer = "sqlserver"
)

// Connection represents an external database a tenant has registered.
// Credential material is encrypted at rest by the service layer; the
// repository only ever sees the ciphertext envelope.
type Connection struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"` // "postgres", "sqlserver"

	// Config holds the decrypted connection details (host, port, database,
	// user, password) or a single "dsn" entry. Exactly one representation is
	// authoritative per record. Nil unless loaded with decryption.
	Config map[string]any `json:"-"`

	Status          string     `json:"status"` // validating | active | failed
	LastValidatedAt *time.Time `json:"last_validated_at,omitempty"`
	LastError       *string    `json:"last_error,omitempty"`

	// Schema holds the cached snapshot, if one has been discovered.
	Schema            *SchemaSnapshot `json:"schema,omitempty"`
	SchemaRefreshedAt *time.Time      `json:"schema_refreshed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credentials is the plaintext credential input for registering a connection.
// Exactly one of Config or DSN must be set.
type Credentials struct {
	// Config holds discrete fields: host, port, database, user, password.
	Config map[string]any `json:"config,omitempty"`
	// DSN is a full connection string alternative to discrete fields.
	DSN string `json:"dsn,omitempty"`
}

// IsDSN reports whether the DSN representation is authoritative.
func (c *Credentials) IsDSN() bool {
	return c.DSN != ""
}
