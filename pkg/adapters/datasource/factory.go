package datasource

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AdapterFactory creates adapters from the registry.
type AdapterFactory interface {
	// NewConnectionTester creates a connection tester for the given type.
	NewConnectionTester(ctx context.Context, connType string, config map[string]any, tenantID, connectionID uuid.UUID) (ConnectionTester, error)

	// NewSchemaIntrospector creates a schema introspector for the given type.
	NewSchemaIntrospector(ctx context.Context, connType string, config map[string]any, tenantID, connectionID uuid.UUID) (SchemaIntrospector, error)

	// NewQueryExecutor creates a query executor for the given type.
	NewQueryExecutor(ctx context.Context, connType string, config map[string]any, tenantID, connectionID uuid.UUID) (QueryExecutor, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []AdapterInfo
}

type registryFactory struct {
	connMgr *ConnectionManager
}

// NewAdapterFactory returns a factory backed by the global registry.
// The connection manager may be nil, in which case adapters create
// unmanaged, single-use connections.
func NewAdapterFactory(connMgr *ConnectionManager) AdapterFactory {
	return &registryFactory{connMgr: connMgr}
}

func (f *registryFactory) NewConnectionTester(ctx context.Context, connType string, config map[string]any, tenantID, connectionID uuid.UUID) (ConnectionTester, error) {
	reg, ok := getRegistration(connType)
	if !ok {
		return nil, fmt.Errorf("unsupported connection type: %s", connType)
	}
	return reg.TesterFactory(ctx, config, f.connMgr, tenantID, connectionID)
}

func (f *registryFactory) NewSchemaIntrospector(ctx context.Context, connType string, config map[string]any, tenantID, connectionID uuid.UUID) (SchemaIntrospector, error) {
	reg, ok := getRegistration(connType)
	if !ok {
		return nil, fmt.Errorf("schema introspection not supported for type: %s", connType)
	}
	return reg.IntrospectorFactory(ctx, config, f.connMgr, tenantID, connectionID)
}

func (f *registryFactory) NewQueryExecutor(ctx context.Context, connType string, config map[string]any, tenantID, connectionID uuid.UUID) (QueryExecutor, error) {
	reg, ok := getRegistration(connType)
	if !ok {
		return nil, fmt.Errorf("query execution not supported for type: %s", connType)
	}
	return reg.ExecutorFactory(ctx, config, f.connMgr, tenantID, connectionID)
}

func (f *registryFactory) ListTypes() []AdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements AdapterFactory at compile time.
var _ AdapterFactory = (*registryFactory)(nil)
