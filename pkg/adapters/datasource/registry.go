package datasource

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// AdapterInfo describes a registered adapter type.
type AdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "sqlserver"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
}

// TesterFactory creates a connection tester for one connection's config.
type TesterFactory func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, tenantID, connectionID uuid.UUID) (ConnectionTester, error)

// IntrospectorFactory creates a schema introspector.
type IntrospectorFactory func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, tenantID, connectionID uuid.UUID) (SchemaIntrospector, error)

// ExecutorFactory creates a query executor.
type ExecutorFactory func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, tenantID, connectionID uuid.UUID) (QueryExecutor, error)

// AdapterRegistration bundles info plus the factories for one dialect.
type AdapterRegistration struct {
	Info                AdapterInfo
	TesterFactory       TesterFactory
	IntrospectorFactory IntrospectorFactory
	ExecutorFactory     ExecutorFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapter types.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

func getRegistration(connType string) (AdapterRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[connType]
	return reg, ok
}
