// Package repositories provides PostgreSQL data access for the engine's
// own metadata store.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
	"github.com/tabular-ai/tabular-engine/pkg/database"
	"github.com/tabular-ai/tabular-engine/pkg/models"
)

// EncryptedCredentials carries a connection's credentials in their stored
// form. Exactly one field is set, mirroring the table's CHECK constraint.
type EncryptedCredentials struct {
	Config *string // encrypted JSON config map
	DSN    *string // encrypted DSN string
}

// ConnectionRepository defines data access for registered connections.
// Credentials are stored as encrypted TEXT - encryption and decryption
// happen in the service layer.
type ConnectionRepository interface {
	// Create inserts a new connection. Returns apperrors.ErrConflict if
	// the (tenant, name) pair already exists.
	Create(ctx context.Context, conn *models.Connection, creds EncryptedCredentials) error

	// GetByID retrieves a connection by ID within a tenant, including its
	// encrypted credentials. Returns apperrors.ErrNotFound if absent.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Connection, EncryptedCredentials, error)

	// List retrieves all connections for a tenant, newest first. Encrypted
	// credentials are not loaded.
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Connection, error)

	// Update edits the display name and/or replaces the credential
	// envelope. Nil arguments leave the corresponding fields untouched.
	Update(ctx context.Context, tenantID, id uuid.UUID, name *string, creds *EncryptedCredentials) error

	// UpdateStatus records the outcome of a connectivity probe.
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string, lastError *string) error

	// UpdateSchemaSnapshot atomically replaces the cached schema snapshot.
	UpdateSchemaSnapshot(ctx context.Context, tenantID, id uuid.UUID, snapshot *models.SchemaSnapshot) error

	// ClearSchemaSnapshot drops the cached schema snapshot.
	ClearSchemaSnapshot(ctx context.Context, tenantID, id uuid.UUID) error

	// Delete removes a connection and, via cascade, its query history.
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type connectionRepository struct {
	db *database.DB
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(db *database.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Create(ctx context.Context, conn *models.Connection, creds EncryptedCredentials) error {
	now := time.Now()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	query := `
		INSERT INTO engine_connections
			(tenant_id, name, connection_type, encrypted_config, encrypted_dsn, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query,
		conn.TenantID,
		conn.Name,
		conn.Type,
		creds.Config,
		creds.DSN,
		conn.Status,
		conn.CreatedAt,
		conn.UpdatedAt,
	).Scan(&conn.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: connection named %q already exists", apperrors.ErrConflict, conn.Name)
		}
		return fmt.Errorf("failed to create connection: %w", err)
	}

	return nil
}

const connectionColumns = `
	id, tenant_id, name, connection_type, encrypted_config, encrypted_dsn,
	status, last_validated_at, last_error, schema_snapshot, schema_refreshed_at,
	created_at, updated_at`

func (r *connectionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Connection, EncryptedCredentials, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM engine_connections
		WHERE tenant_id = $1 AND id = $2`

	row := r.db.Pool.QueryRow(ctx, query, tenantID, id)
	conn, creds, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, EncryptedCredentials{}, fmt.Errorf("%w: connection %s", apperrors.ErrNotFound, id)
		}
		return nil, EncryptedCredentials{}, fmt.Errorf("failed to get connection: %w", err)
	}

	return conn, creds, nil
}

func (r *connectionRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM engine_connections
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var connections []*models.Connection
	for rows.Next() {
		conn, _, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return connections, nil
}

func (r *connectionRepository) Update(ctx context.Context, tenantID, id uuid.UUID, name *string, creds *EncryptedCredentials) error {
	query := `
		UPDATE engine_connections
		SET name = COALESCE($3, name),
		    encrypted_config = CASE WHEN $4 THEN $5 ELSE encrypted_config END,
		    encrypted_dsn = CASE WHEN $4 THEN $6 ELSE encrypted_dsn END,
		    updated_at = $7
		WHERE tenant_id = $1 AND id = $2`

	var encConfig, encDSN *string
	replaceCreds := creds != nil
	if replaceCreds {
		encConfig = creds.Config
		encDSN = creds.DSN
	}

	result, err := r.db.Pool.Exec(ctx, query, tenantID, id, name, replaceCreds, encConfig, encDSN, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: connection name already in use", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: connection %s", apperrors.ErrNotFound, id)
	}

	return nil
}

func (r *connectionRepository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string, lastError *string) error {
	query := `
		UPDATE engine_connections
		SET status = $3, last_validated_at = $4, last_error = $5, updated_at = $4
		WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.Pool.Exec(ctx, query, tenantID, id, status, time.Now(), lastError)
	if err != nil {
		return fmt.Errorf("failed to update connection status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: connection %s", apperrors.ErrNotFound, id)
	}

	return nil
}

func (r *connectionRepository) UpdateSchemaSnapshot(ctx context.Context, tenantID, id uuid.UUID, snapshot *models.SchemaSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal schema snapshot: %w", err)
	}

	query := `
		UPDATE engine_connections
		SET schema_snapshot = $3, schema_refreshed_at = $4, updated_at = $4
		WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.Pool.Exec(ctx, query, tenantID, id, payload, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update schema snapshot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: connection %s", apperrors.ErrNotFound, id)
	}

	return nil
}

func (r *connectionRepository) ClearSchemaSnapshot(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		UPDATE engine_connections
		SET schema_snapshot = NULL, schema_refreshed_at = NULL, updated_at = $3
		WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.Pool.Exec(ctx, query, tenantID, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to clear schema snapshot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: connection %s", apperrors.ErrNotFound, id)
	}

	return nil
}

func (r *connectionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx,
		`DELETE FROM engine_connections WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: connection %s", apperrors.ErrNotFound, id)
	}

	return nil
}

// scanConnection reads one connection row. The schema snapshot JSONB is
// decoded here so callers always see a typed snapshot.
func scanConnection(row pgx.Row) (*models.Connection, EncryptedCredentials, error) {
	var conn models.Connection
	var creds EncryptedCredentials
	var snapshotJSON []byte

	err := row.Scan(
		&conn.ID,
		&conn.TenantID,
		&conn.Name,
		&conn.Type,
		&creds.Config,
		&creds.DSN,
		&conn.Status,
		&conn.LastValidatedAt,
		&conn.LastError,
		&snapshotJSON,
		&conn.SchemaRefreshedAt,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, EncryptedCredentials{}, err
	}

	if len(snapshotJSON) > 0 {
		var snapshot models.SchemaSnapshot
		if err := json.Unmarshal(snapshotJSON, &snapshot); err != nil {
			return nil, EncryptedCredentials{}, fmt.Errorf("failed to decode schema snapshot: %w", err)
		}
		conn.Schema = &snapshot
	}

	return &conn, creds, nil
}
