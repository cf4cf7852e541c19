package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
	"github.com/tabular-ai/tabular-engine/pkg/models"
	"github.com/tabular-ai/tabular-engine/pkg/repositories"
)

// Mock implementations shared across service tests.

type storedConnection struct {
	conn  *models.Connection
	creds repositories.EncryptedCredentials
}

type mockConnectionRepository struct {
	connections map[uuid.UUID]*storedConnection

	createErr error
	getErr    error

	statusUpdates   int
	snapshotUpdates int
	snapshotClears  int
}

func newMockConnectionRepository() *mockConnectionRepository {
	return &mockConnectionRepository{connections: make(map[uuid.UUID]*storedConnection)}
}

func (m *mockConnectionRepository) Create(ctx context.Context, conn *models.Connection, creds repositories.EncryptedCredentials) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.connections {
		if existing.conn.TenantID == conn.TenantID && existing.conn.Name == conn.Name {
			return fmt.Errorf("%w: connection named %q already exists", apperrors.ErrConflict, conn.Name)
		}
	}
	conn.ID = uuid.New()
	m.connections[conn.ID] = &storedConnection{conn: conn, creds: creds}
	return nil
}

func (m *mockConnectionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Connection, repositories.EncryptedCredentials, error) {
	if m.getErr != nil {
		return nil, repositories.EncryptedCredentials{}, m.getErr
	}
	stored, ok := m.connections[id]
	if !ok || stored.conn.TenantID != tenantID {
		return nil, repositories.EncryptedCredentials{}, apperrors.ErrNotFound
	}
	copied := *stored.conn
	copied.Config = nil
	return &copied, stored.creds, nil
}

func (m *mockConnectionRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Connection, error) {
	var out []*models.Connection
	for _, stored := range m.connections {
		if stored.conn.TenantID == tenantID {
			copied := *stored.conn
			copied.Config = nil
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockConnectionRepository) Update(ctx context.Context, tenantID, id uuid.UUID, name *string, creds *repositories.EncryptedCredentials) error {
	stored, ok := m.connections[id]
	if !ok || stored.conn.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	if name != nil {
		stored.conn.Name = *name
	}
	if creds != nil {
		stored.creds = *creds
	}
	return nil
}

func (m *mockConnectionRepository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string, lastError *string) error {
	stored, ok := m.connections[id]
	if !ok || stored.conn.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	m.statusUpdates++
	stored.conn.Status = status
	stored.conn.LastError = lastError
	return nil
}

func (m *mockConnectionRepository) UpdateSchemaSnapshot(ctx context.Context, tenantID, id uuid.UUID, snapshot *models.SchemaSnapshot) error {
	stored, ok := m.connections[id]
	if !ok || stored.conn.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	m.snapshotUpdates++
	stored.conn.Schema = snapshot
	return nil
}

func (m *mockConnectionRepository) ClearSchemaSnapshot(ctx context.Context, tenantID, id uuid.UUID) error {
	stored, ok := m.connections[id]
	if !ok || stored.conn.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	m.snapshotClears++
	stored.conn.Schema = nil
	return nil
}

func (m *mockConnectionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	stored, ok := m.connections[id]
	if !ok || stored.conn.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	delete(m.connections, id)
	return nil
}

type mockQueryHistoryRepository struct {
	entries   []*models.QueryHistoryEntry
	recordErr error
	listErr   error
}

func (m *mockQueryHistoryRepository) Record(ctx context.Context, entry *models.QueryHistoryEntry) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	entry.ID = uuid.New()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockQueryHistoryRepository) ListRecent(ctx context.Context, tenantID, connectionID uuid.UUID, limit int) ([]*models.QueryHistoryEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.QueryHistoryEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.entries[i]
		if e.TenantID == tenantID && e.ConnectionID == connectionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockConnectionTester struct {
	err    error
	calls  int
	closed bool
}

func (m *mockConnectionTester) TestConnection(ctx context.Context) error {
	m.calls++
	return m.err
}

func (m *mockConnectionTester) Close() error {
	m.closed = true
	return nil
}

type mockSchemaIntrospector struct {
	tables     []datasource.Table
	columns    map[string][]datasource.Column
	fks        map[string][]datasource.ForeignKey
	supportsFK bool

	tablesErr  error
	columnsErr map[string]error

	closed bool
}

func (m *mockSchemaIntrospector) GetTables(ctx context.Context) ([]datasource.Table, error) {
	return m.tables, m.tablesErr
}

func (m *mockSchemaIntrospector) GetColumns(ctx context.Context, schemaName, tableName string) ([]datasource.Column, error) {
	if err := m.columnsErr[tableName]; err != nil {
		return nil, err
	}
	return m.columns[tableName], nil
}

func (m *mockSchemaIntrospector) GetForeignKeys(ctx context.Context, schemaName, tableName string) ([]datasource.ForeignKey, error) {
	return m.fks[tableName], nil
}

func (m *mockSchemaIntrospector) SupportsForeignKeys() bool { return m.supportsFK }

func (m *mockSchemaIntrospector) Close() error {
	m.closed = true
	return nil
}

type mockQueryExecutor struct {
	result *datasource.QueryResult
	err    error

	lastSQL   string
	lastLimit int
	closed    bool
}

func (m *mockQueryExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	m.lastSQL = sqlQuery
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockQueryExecutor) QuoteIdentifier(name string) string { return `"` + name + `"` }

func (m *mockQueryExecutor) Close() error {
	m.closed = true
	return nil
}

type mockAdapterFactory struct {
	tester       *mockConnectionTester
	introspector *mockSchemaIntrospector
	executor     *mockQueryExecutor

	testerErr       error
	introspectorErr error
	executorErr     error
}

func (m *mockAdapterFactory) NewConnectionTester(ctx context.Context, connType string, config map[string]any, tenantID, connectionID uuid.UUID) (datasource.ConnectionTester, error) {
	if m.testerErr != nil {
		return nil, m.testerErr
	}
	return m.tester, nil
}

func (m *mockAdapterFactory) NewSchemaIntrospector(ctx context.Context, connType string, config map[string]any, tenantID, connectionID uuid.UUID) (datasource.SchemaIntrospector, error) {
	if m.introspectorErr != nil {
		return nil, m.introspectorErr
	}
	return m.introspector, nil
}

func (m *mockAdapterFactory) NewQueryExecutor(ctx context.Context, connType string, config map[string]any, tenantID, connectionID uuid.UUID) (datasource.QueryExecutor, error) {
	if m.executorErr != nil {
		return nil, m.executorErr
	}
	return m.executor, nil
}

func (m *mockAdapterFactory) ListTypes() []datasource.AdapterInfo { return nil }
