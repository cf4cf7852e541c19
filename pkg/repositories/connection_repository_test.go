//go:build integration

package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
	"github.com/tabular-ai/tabular-engine/pkg/models"
	"github.com/tabular-ai/tabular-engine/pkg/testhelpers"
)

func strPtr(s string) *string { return &s }

func newTestConnection(tenantID uuid.UUID, name string) *models.Connection {
	return &models.Connection{
		TenantID: tenantID,
		Name:     name,
		Type:     models.ConnectionTypePostgres,
		Status:   models.ConnectionStatusValidating,
	}
}

func TestConnectionRepository_CreateAndGet(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewConnectionRepository(engineDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	conn := newTestConnection(tenantID, "sales-db")
	creds := EncryptedCredentials{Config: strPtr("encrypted-config-blob")}

	if err := repo.Create(ctx, conn, creds); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if conn.ID == uuid.Nil {
		t.Fatal("expected ID to be assigned")
	}

	got, gotCreds, err := repo.GetByID(ctx, tenantID, conn.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "sales-db" {
		t.Errorf("expected name 'sales-db', got %q", got.Name)
	}
	if got.Status != models.ConnectionStatusValidating {
		t.Errorf("expected status validating, got %q", got.Status)
	}
	if gotCreds.Config == nil || *gotCreds.Config != "encrypted-config-blob" {
		t.Error("encrypted config not round-tripped")
	}
	if gotCreds.DSN != nil {
		t.Error("expected DSN to be nil for config credentials")
	}
}

func TestConnectionRepository_DuplicateNameConflict(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewConnectionRepository(engineDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()
	creds := EncryptedCredentials{DSN: strPtr("encrypted-dsn")}

	if err := repo.Create(ctx, newTestConnection(tenantID, "dup"), creds); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	err := repo.Create(ctx, newTestConnection(tenantID, "dup"), creds)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("expected ErrConflict, got: %v", err)
	}

	// Same name under a different tenant is fine.
	if err := repo.Create(ctx, newTestConnection(uuid.New(), "dup"), creds); err != nil {
		t.Errorf("same name in other tenant should succeed, got: %v", err)
	}
}

func TestConnectionRepository_TenantIsolation(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewConnectionRepository(engineDB.DB)
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()

	conn := newTestConnection(tenantA, "isolated")
	if err := repo.Create(ctx, conn, EncryptedCredentials{DSN: strPtr("x")}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, _, err := repo.GetByID(ctx, tenantB, conn.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound across tenants, got: %v", err)
	}

	list, err := repo.List(ctx, tenantB)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, c := range list {
		if c.ID == conn.ID {
			t.Error("connection leaked into another tenant's listing")
		}
	}
}

func TestConnectionRepository_UpdateStatus(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewConnectionRepository(engineDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	conn := newTestConnection(tenantID, "status-test")
	if err := repo.Create(ctx, conn, EncryptedCredentials{DSN: strPtr("x")}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.UpdateStatus(ctx, tenantID, conn.ID, models.ConnectionStatusFailed, strPtr("connection refused")); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, _, err := repo.GetByID(ctx, tenantID, conn.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.ConnectionStatusFailed {
		t.Errorf("expected status failed, got %q", got.Status)
	}
	if got.LastError == nil || *got.LastError != "connection refused" {
		t.Error("last error not recorded")
	}
	if got.LastValidatedAt == nil {
		t.Error("last validated timestamp not recorded")
	}

	if err := repo.UpdateStatus(ctx, tenantID, uuid.New(), models.ConnectionStatusActive, nil); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown connection, got: %v", err)
	}
}

func TestConnectionRepository_Update(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewConnectionRepository(engineDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	conn := newTestConnection(tenantID, "update-test")
	if err := repo.Create(ctx, conn, EncryptedCredentials{Config: strPtr("old-envelope")}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Rename only: credentials stay untouched.
	if err := repo.Update(ctx, tenantID, conn.ID, strPtr("renamed"), nil); err != nil {
		t.Fatalf("Update name failed: %v", err)
	}
	got, creds, err := repo.GetByID(ctx, tenantID, conn.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("expected name 'renamed', got %q", got.Name)
	}
	if creds.Config == nil || *creds.Config != "old-envelope" {
		t.Error("credentials changed on a rename")
	}

	// Credential swap to the DSN representation.
	if err := repo.Update(ctx, tenantID, conn.ID, nil, &EncryptedCredentials{DSN: strPtr("dsn-envelope")}); err != nil {
		t.Fatalf("Update credentials failed: %v", err)
	}
	got, creds, err = repo.GetByID(ctx, tenantID, conn.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("name changed on a credential swap: %q", got.Name)
	}
	if creds.Config != nil {
		t.Error("expected config envelope to be cleared")
	}
	if creds.DSN == nil || *creds.DSN != "dsn-envelope" {
		t.Error("DSN envelope not stored")
	}

	if err := repo.Update(ctx, tenantID, uuid.New(), strPtr("x"), nil); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown connection, got: %v", err)
	}
}

func TestConnectionRepository_SchemaSnapshotRoundTrip(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewConnectionRepository(engineDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	conn := newTestConnection(tenantID, "snapshot-test")
	if err := repo.Create(ctx, conn, EncryptedCredentials{DSN: strPtr("x")}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	snapshot := &models.SchemaSnapshot{
		Tables: []models.SnapshotTable{
			{
				Schema: "public",
				Name:   "orders",
				Columns: []models.SnapshotColumn{
					{Name: "id", DataType: "uuid", IsPrimary: true},
				},
			},
		},
	}

	if err := repo.UpdateSchemaSnapshot(ctx, tenantID, conn.ID, snapshot); err != nil {
		t.Fatalf("UpdateSchemaSnapshot failed: %v", err)
	}

	got, _, err := repo.GetByID(ctx, tenantID, conn.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Schema == nil || len(got.Schema.Tables) != 1 {
		t.Fatal("snapshot not round-tripped")
	}
	if got.Schema.Tables[0].Name != "orders" {
		t.Errorf("unexpected table name: %s", got.Schema.Tables[0].Name)
	}
	if got.SchemaRefreshedAt == nil {
		t.Error("schema refreshed timestamp not set")
	}

	if err := repo.ClearSchemaSnapshot(ctx, tenantID, conn.ID); err != nil {
		t.Fatalf("ClearSchemaSnapshot failed: %v", err)
	}

	got, _, err = repo.GetByID(ctx, tenantID, conn.ID)
	if err != nil {
		t.Fatalf("GetByID after clear failed: %v", err)
	}
	if got.Schema != nil {
		t.Error("expected snapshot to be cleared")
	}
}

func TestConnectionRepository_DeleteCascadesHistory(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewConnectionRepository(engineDB.DB)
	historyRepo := NewQueryHistoryRepository(engineDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	conn := newTestConnection(tenantID, "delete-test")
	if err := repo.Create(ctx, conn, EncryptedCredentials{DSN: strPtr("x")}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entry := &models.QueryHistoryEntry{
		TenantID:     tenantID,
		ConnectionID: conn.ID,
		Question:     "how many orders?",
		Success:      true,
	}
	if err := historyRepo.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if err := repo.Delete(ctx, tenantID, conn.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, _, err := repo.GetByID(ctx, tenantID, conn.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}

	entries, err := historyRepo.ListRecent(ctx, tenantID, conn.ID, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected history cascade delete, found %d entries", len(entries))
	}
}

func TestQueryHistoryRepository_RecordAndList(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewConnectionRepository(engineDB.DB)
	historyRepo := NewQueryHistoryRepository(engineDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	conn := newTestConnection(tenantID, "history-test")
	if err := repo.Create(ctx, conn, EncryptedCredentials{DSN: strPtr("x")}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		rowCount := i
		execMs := int64(10 * i)
		entry := &models.QueryHistoryEntry{
			TenantID:     tenantID,
			ConnectionID: conn.ID,
			Question:     fmt.Sprintf("question %d", i),
			GeneratedSQL: strPtr(fmt.Sprintf("SELECT %d", i)),
			Success:      true,
			RowCount:     &rowCount,
			ExecutionMs:  &execMs,
		}
		if err := historyRepo.Record(ctx, entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := historyRepo.ListRecent(ctx, tenantID, conn.ID, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Question != "question 2" {
		t.Errorf("expected newest entry first, got %q", entries[0].Question)
	}
}
