package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
	"github.com/tabular-ai/tabular-engine/pkg/crypto"
	"github.com/tabular-ai/tabular-engine/pkg/logging"
	"github.com/tabular-ai/tabular-engine/pkg/models"
	"github.com/tabular-ai/tabular-engine/pkg/repositories"
)

// ConnectionService manages the lifecycle of registered database connections:
// registration with encrypted credential storage, validation probes, listing,
// and removal.
type ConnectionService interface {
	// Create registers a connection, encrypts its credentials, and probes
	// reachability. The returned connection reflects the probe outcome
	// (active or failed); registration itself succeeds either way.
	Create(ctx context.Context, tenantID uuid.UUID, req *CreateConnectionRequest) (*models.Connection, error)

	// Get returns one connection with decrypted credentials loaded into
	// Config. Only call on paths that need to dial the datasource.
	Get(ctx context.Context, tenantID, connectionID uuid.UUID) (*models.Connection, error)

	// List returns the tenant's connections without credential material.
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Connection, error)

	// Update edits the name and/or replaces the credentials. New
	// credentials are re-encrypted and re-probed before the updated
	// connection is returned.
	Update(ctx context.Context, tenantID, connectionID uuid.UUID, req *UpdateConnectionRequest) (*models.Connection, error)

	// TestConnection re-probes a stored connection and updates its status.
	TestConnection(ctx context.Context, tenantID, connectionID uuid.UUID) error

	// Delete removes a connection, its history, and any pooled connections.
	Delete(ctx context.Context, tenantID, connectionID uuid.UUID) error
}

// CreateConnectionRequest contains fields for registering a connection.
type CreateConnectionRequest struct {
	Name        string             `json:"name"`
	Type        string             `json:"type"` // "postgres", "sqlserver"
	Credentials models.Credentials `json:"credentials"`
}

// UpdateConnectionRequest contains fields for editing a connection.
// Nil fields are left unchanged.
type UpdateConnectionRequest struct {
	Name        *string             `json:"name,omitempty"`
	Credentials *models.Credentials `json:"credentials,omitempty"`
}

type connectionService struct {
	repo           repositories.ConnectionRepository
	vault          *crypto.Vault
	adapterFactory datasource.AdapterFactory
	connMgr        *datasource.ConnectionManager
	logger         *zap.Logger
}

// NewConnectionService creates a connection service with dependencies.
// connMgr may be nil when pooled connections are not in use.
func NewConnectionService(
	repo repositories.ConnectionRepository,
	vault *crypto.Vault,
	adapterFactory datasource.AdapterFactory,
	connMgr *datasource.ConnectionManager,
	logger *zap.Logger,
) ConnectionService {
	return &connectionService{
		repo:           repo,
		vault:          vault,
		adapterFactory: adapterFactory,
		connMgr:        connMgr,
		logger:         logger.Named("connections"),
	}
}

func (s *connectionService) Create(ctx context.Context, tenantID uuid.UUID, req *CreateConnectionRequest) (*models.Connection, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("connection name is required")
	}
	if !isSupportedType(req.Type) {
		return nil, fmt.Errorf("unsupported connection type: %s", req.Type)
	}
	if err := validateCredentials(&req.Credentials); err != nil {
		return nil, err
	}

	creds, err := s.encryptCredentials(&req.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	conn := &models.Connection{
		TenantID: tenantID,
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		Status:   models.ConnectionStatusValidating,
	}

	if err := s.repo.Create(ctx, conn, creds); err != nil {
		return nil, err
	}

	s.logger.Info("Registered connection",
		zap.String("id", conn.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("type", conn.Type),
	)

	conn.Config = credentialsConfig(&req.Credentials)
	s.probe(ctx, conn)

	return conn, nil
}

func (s *connectionService) Get(ctx context.Context, tenantID, connectionID uuid.UUID) (*models.Connection, error) {
	conn, creds, err := s.repo.GetByID(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}

	config, err := s.decryptCredentials(creds)
	if err != nil {
		s.logger.Error("Credential decryption failed",
			zap.String("connection_id", connectionID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	conn.Config = config

	return conn, nil
}

func (s *connectionService) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Connection, error) {
	return s.repo.List(ctx, tenantID)
}

func (s *connectionService) Update(ctx context.Context, tenantID, connectionID uuid.UUID, req *UpdateConnectionRequest) (*models.Connection, error) {
	if req.Name == nil && req.Credentials == nil {
		return nil, fmt.Errorf("nothing to update")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("connection name must not be empty")
	}

	var sealed *repositories.EncryptedCredentials
	if req.Credentials != nil {
		if err := validateCredentials(req.Credentials); err != nil {
			return nil, err
		}
		enc, err := s.encryptCredentials(req.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		sealed = &enc
	}

	if err := s.repo.Update(ctx, tenantID, connectionID, req.Name, sealed); err != nil {
		return nil, err
	}

	conn, err := s.Get(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}

	// New credentials invalidate the previous probe outcome.
	if req.Credentials != nil {
		if s.connMgr != nil {
			s.connMgr.Evict(tenantID, connectionID)
		}
		s.probe(ctx, conn)
	}

	s.logger.Info("Updated connection",
		zap.String("id", connectionID.String()),
		zap.Bool("credentials_replaced", req.Credentials != nil),
	)

	return conn, nil
}

func (s *connectionService) TestConnection(ctx context.Context, tenantID, connectionID uuid.UUID) error {
	conn, err := s.Get(ctx, tenantID, connectionID)
	if err != nil {
		return err
	}

	s.probe(ctx, conn)

	if conn.Status != models.ConnectionStatusActive {
		msg := "connection probe failed"
		if conn.LastError != nil {
			msg = *conn.LastError
		}
		return fmt.Errorf("%w: %s", apperrors.ErrConnectionUnreachable, msg)
	}
	return nil
}

func (s *connectionService) Delete(ctx context.Context, tenantID, connectionID uuid.UUID) error {
	if err := s.repo.Delete(ctx, tenantID, connectionID); err != nil {
		return err
	}

	if s.connMgr != nil {
		s.connMgr.Evict(tenantID, connectionID)
	}

	s.logger.Info("Deleted connection",
		zap.String("id", connectionID.String()),
		zap.String("tenant_id", tenantID.String()),
	)
	return nil
}

// probe tests reachability with the decrypted config on conn and records the
// outcome. conn.Status and conn.LastError are updated in place.
func (s *connectionService) probe(ctx context.Context, conn *models.Connection) {
	probeErr := s.runProbe(ctx, conn)

	if probeErr == nil {
		conn.Status = models.ConnectionStatusActive
		conn.LastError = nil
	} else {
		sanitized := logging.SanitizeError(probeErr)
		conn.Status = models.ConnectionStatusFailed
		conn.LastError = &sanitized
		s.logger.Warn("Connection probe failed",
			zap.String("connection_id", conn.ID.String()),
			zap.String("error", sanitized),
		)
	}

	if err := s.repo.UpdateStatus(ctx, conn.TenantID, conn.ID, conn.Status, conn.LastError); err != nil {
		s.logger.Error("Failed to record probe outcome",
			zap.String("connection_id", conn.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *connectionService) runProbe(ctx context.Context, conn *models.Connection) error {
	tester, err := s.adapterFactory.NewConnectionTester(ctx, conn.Type, conn.Config, conn.TenantID, conn.ID)
	if err != nil {
		return err
	}
	defer tester.Close()
	return tester.TestConnection(ctx)
}

// encryptCredentials seals exactly one credential representation.
func (s *connectionService) encryptCredentials(creds *models.Credentials) (repositories.EncryptedCredentials, error) {
	if creds.IsDSN() {
		sealed, err := s.vault.Encrypt(creds.DSN)
		if err != nil {
			return repositories.EncryptedCredentials{}, err
		}
		return repositories.EncryptedCredentials{DSN: &sealed}, nil
	}

	raw, err := json.Marshal(creds.Config)
	if err != nil {
		return repositories.EncryptedCredentials{}, fmt.Errorf("failed to marshal config: %w", err)
	}
	sealed, err := s.vault.Encrypt(string(raw))
	if err != nil {
		return repositories.EncryptedCredentials{}, err
	}
	return repositories.EncryptedCredentials{Config: &sealed}, nil
}

// decryptCredentials opens the stored envelope and returns the adapter config
// map. A DSN envelope decrypts to a single "dsn" entry.
func (s *connectionService) decryptCredentials(creds repositories.EncryptedCredentials) (map[string]any, error) {
	if creds.DSN != nil {
		dsn, err := s.vault.Decrypt(*creds.DSN)
		if err != nil {
			return nil, err
		}
		return map[string]any{"dsn": dsn}, nil
	}

	if creds.Config == nil {
		return nil, fmt.Errorf("%w: no credential envelope stored", apperrors.ErrCredentialIntegrity)
	}

	raw, err := s.vault.Decrypt(*creds.Config)
	if err != nil {
		return nil, err
	}

	var config map[string]any
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return nil, fmt.Errorf("%w: decrypted config is not valid JSON", apperrors.ErrCredentialIntegrity)
	}
	return config, nil
}

func validateCredentials(creds *models.Credentials) error {
	hasConfig := len(creds.Config) > 0
	hasDSN := creds.DSN != ""
	if hasConfig == hasDSN {
		return fmt.Errorf("exactly one of config or dsn must be provided")
	}
	return nil
}

func credentialsConfig(creds *models.Credentials) map[string]any {
	if creds.IsDSN() {
		return map[string]any{"dsn": creds.DSN}
	}
	return creds.Config
}

func isSupportedType(connType string) bool {
	switch connType {
	case models.ConnectionTypePostgres, models.ConnectionTypeSQLServer:
		return true
	}
	return false
}

var _ ConnectionService = (*connectionService)(nil)
