package mssql

import (
	"context"

	"github.com/google/uuid"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "sqlserver",
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2016+, Azure SQL Database",
		},
		TesterFactory: func(ctx context.Context, config map[string]any, connMgr *datasource.ConnectionManager, tenantID, connectionID uuid.UUID) (datasource.ConnectionTester, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewAdapter(ctx, cfg, connMgr, tenantID, connectionID)
		},
		IntrospectorFactory: func(ctx context.Context, config map[string]any, connMgr *datasource.ConnectionManager, tenantID, connectionID uuid.UUID) (datasource.SchemaIntrospector, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewIntrospector(ctx, cfg, connMgr, tenantID, connectionID)
		},
		ExecutorFactory: func(ctx context.Context, config map[string]any, connMgr *datasource.ConnectionManager, tenantID, connectionID uuid.UUID) (datasource.QueryExecutor, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewQueryExecutor(ctx, cfg, connMgr, tenantID, connectionID)
		},
	})
}
