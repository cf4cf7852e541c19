package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
	"github.com/tabular-ai/tabular-engine/pkg/logging"
	"github.com/tabular-ai/tabular-engine/pkg/models"
	"github.com/tabular-ai/tabular-engine/pkg/repositories"
)

// SchemaService maintains schema snapshots for registered connections.
// Snapshots live in a process-local cache backed by the engine store, so a
// restart reloads the last discovered schema without re-introspecting.
type SchemaService interface {
	// GetCached returns the current snapshot for a connection. Returns
	// apperrors.ErrSchemaUnavailable when none has been discovered yet.
	GetCached(ctx context.Context, tenantID, connectionID uuid.UUID) (*models.SchemaSnapshot, error)

	// Discover introspects the datasource and atomically replaces the
	// snapshot. Failure leaves any previous snapshot untouched; a partial
	// introspection is never stored.
	Discover(ctx context.Context, tenantID, connectionID uuid.UUID) (*models.SchemaSnapshot, error)

	// Invalidate drops the snapshot from cache and store. The next query
	// against the connection triggers rediscovery.
	Invalidate(ctx context.Context, tenantID, connectionID uuid.UUID) error
}

type schemaService struct {
	connections    ConnectionService
	repo           repositories.ConnectionRepository
	adapterFactory datasource.AdapterFactory
	logger         *zap.Logger

	mu    sync.RWMutex
	cache map[string]*models.SchemaSnapshot
}

// NewSchemaService creates a schema service with dependencies.
func NewSchemaService(
	connections ConnectionService,
	repo repositories.ConnectionRepository,
	adapterFactory datasource.AdapterFactory,
	logger *zap.Logger,
) SchemaService {
	return &schemaService{
		connections:    connections,
		repo:           repo,
		adapterFactory: adapterFactory,
		logger:         logger.Named("schema"),
		cache:          make(map[string]*models.SchemaSnapshot),
	}
}

func snapshotKey(tenantID, connectionID uuid.UUID) string {
	return tenantID.String() + ":" + connectionID.String()
}

func (s *schemaService) GetCached(ctx context.Context, tenantID, connectionID uuid.UUID) (*models.SchemaSnapshot, error) {
	key := snapshotKey(tenantID, connectionID)

	s.mu.RLock()
	snapshot, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return snapshot, nil
	}

	// Cache miss: fall back to the persisted snapshot.
	conn, _, err := s.repo.GetByID(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.Schema == nil {
		return nil, fmt.Errorf("%w: connection %s", apperrors.ErrSchemaUnavailable, connectionID)
	}

	s.mu.Lock()
	s.cache[key] = conn.Schema
	s.mu.Unlock()

	return conn.Schema, nil
}

func (s *schemaService) Discover(ctx context.Context, tenantID, connectionID uuid.UUID) (*models.SchemaSnapshot, error) {
	conn, err := s.connections.Get(ctx, tenantID, connectionID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	snapshot, err := s.introspect(ctx, conn)
	if err != nil {
		s.logger.Warn("Schema discovery failed",
			zap.String("connection_id", connectionID.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSchemaDiscovery, logging.SanitizeError(err))
	}

	if err := s.repo.UpdateSchemaSnapshot(ctx, tenantID, connectionID, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store schema snapshot: %w", err)
	}

	s.mu.Lock()
	s.cache[snapshotKey(tenantID, connectionID)] = snapshot
	s.mu.Unlock()

	s.logger.Info("Discovered schema",
		zap.String("connection_id", connectionID.String()),
		zap.Int("tables", len(snapshot.Tables)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return snapshot, nil
}

func (s *schemaService) Invalidate(ctx context.Context, tenantID, connectionID uuid.UUID) error {
	if err := s.repo.ClearSchemaSnapshot(ctx, tenantID, connectionID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, snapshotKey(tenantID, connectionID))
	s.mu.Unlock()

	s.logger.Info("Invalidated schema snapshot",
		zap.String("connection_id", connectionID.String()),
	)
	return nil
}

// introspect walks the datasource catalog and builds a complete snapshot.
// Any mid-walk failure aborts the whole build.
func (s *schemaService) introspect(ctx context.Context, conn *models.Connection) (*models.SchemaSnapshot, error) {
	introspector, err := s.adapterFactory.NewSchemaIntrospector(ctx, conn.Type, conn.Config, conn.TenantID, conn.ID)
	if err != nil {
		return nil, err
	}
	defer introspector.Close()

	tables, err := introspector.GetTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	snapshot := &models.SchemaSnapshot{
		Tables:      make([]models.SnapshotTable, 0, len(tables)),
		RefreshedAt: time.Now().UTC(),
	}

	for _, table := range tables {
		columns, err := introspector.GetColumns(ctx, table.Schema, table.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s.%s: %w", table.Schema, table.Name, err)
		}

		st := models.SnapshotTable{
			Schema:  table.Schema,
			Name:    table.Name,
			Columns: make([]models.SnapshotColumn, 0, len(columns)),
		}
		for _, col := range columns {
			st.Columns = append(st.Columns, models.SnapshotColumn{
				Name:       col.Name,
				DataType:   col.DataType,
				IsNullable: col.IsNullable,
				IsPrimary:  col.IsPrimary,
			})
		}

		if introspector.SupportsForeignKeys() {
			fks, err := introspector.GetForeignKeys(ctx, table.Schema, table.Name)
			if err != nil {
				return nil, fmt.Errorf("failed to read foreign keys of %s.%s: %w", table.Schema, table.Name, err)
			}
			for _, fk := range fks {
				st.ForeignKeys = append(st.ForeignKeys, models.SnapshotForeignKey{
					Column:           fk.Column,
					ReferencedTable:  fk.ReferencedTable,
					ReferencedColumn: fk.ReferencedColumn,
				})
			}
		}

		snapshot.Tables = append(snapshot.Tables, st)
	}

	return snapshot, nil
}

var _ SchemaService = (*schemaService)(nil)
