package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
	_ "github.com/tabular-ai/tabular-engine/pkg/adapters/datasource/mssql"    // register sqlserver adapter
	_ "github.com/tabular-ai/tabular-engine/pkg/adapters/datasource/postgres" // register postgres adapter
	"github.com/tabular-ai/tabular-engine/pkg/config"
	"github.com/tabular-ai/tabular-engine/pkg/crypto"
	"github.com/tabular-ai/tabular-engine/pkg/database"
	"github.com/tabular-ai/tabular-engine/pkg/llm"
	"github.com/tabular-ai/tabular-engine/pkg/models"
	"github.com/tabular-ai/tabular-engine/pkg/presenter"
	"github.com/tabular-ai/tabular-engine/pkg/repositories"
	"github.com/tabular-ai/tabular-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tabular-engine",
		zap.String("version", Version),
		zap.String("env", cfg.Env),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
	)

	ctx := context.Background()

	vault, err := crypto.NewVault(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("Failed to create credential vault", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to engine store", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(cfg.Database.ConnectionString(), database.DefaultMigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTL:         cfg.Datasource.ConnectionTTL(),
		MaxPoolSize: cfg.Datasource.PoolMaxConns,
	}, logger)
	defer connMgr.Close()

	adapterFactory := datasource.NewAdapterFactory(connMgr)

	llmClient, err := llm.NewClientFromConfig(&llm.Config{
		Provider:  cfg.LLM.Provider,
		Endpoint:  cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		MaxTokens: cfg.LLM.MaxTokens,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	connRepo := repositories.NewConnectionRepository(db)
	historyRepo := repositories.NewQueryHistoryRepository(db)

	connSvc := services.NewConnectionService(connRepo, vault, adapterFactory, connMgr, logger)
	schemaSvc := services.NewSchemaService(connSvc, connRepo, adapterFactory, logger)
	synthSvc := services.NewSynthesisService(llmClient, cfg.Pipeline.ConfidenceThreshold, logger)
	execSvc := services.NewExecutionService(adapterFactory, cfg.Pipeline.StatementTimeout(), cfg.Pipeline.MaxRows, logger)
	pipeline := services.NewQueryPipeline(connSvc, schemaSvc, synthSvc, execSvc, historyRepo, cfg.Pipeline.HistoryWindow, logger)

	present := presenter.New(cfg.Pipeline.RenderMaxRows, cfg.Pipeline.RenderCellWidth)

	logger.Info("tabular-engine ready",
		zap.Int("adapters", len(adapterFactory.ListTypes())),
	)

	// The engine core is embedded by a transport layer that supplies
	// authenticated tenant ids. The ask subcommand exists to smoke-test a
	// wired deployment from a shell.
	if len(os.Args) >= 5 && os.Args[1] == "ask" {
		if err := ask(ctx, pipeline, present, os.Args[2], os.Args[3], os.Args[4]); err != nil {
			logger.Fatal("ask failed", zap.Error(err))
		}
	}
}

func ask(ctx context.Context, pipeline services.QueryPipeline, present *presenter.Presenter, tenant, connection, question string) error {
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return fmt.Errorf("invalid tenant id: %w", err)
	}
	connectionID, err := uuid.Parse(connection)
	if err != nil {
		return fmt.Errorf("invalid connection id: %w", err)
	}

	answer, err := pipeline.Answer(ctx, &models.QueryRequest{
		TenantID:     tenantID,
		ConnectionID: connectionID,
		Question:     question,
	})
	if err != nil {
		return err
	}

	if answer.NeedsClarification {
		fmt.Println(answer.ClarificationQuestion)
		return nil
	}

	fmt.Println(present.Summarize(answer.Result))
	if table := present.RenderTable(answer.Result); table != "" {
		fmt.Println()
		fmt.Println(table)
	}
	fmt.Printf("\nSQL: %s\n", answer.GeneratedSQL)
	return nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
