package prompts

import (
	"strings"
	"testing"

	"github.com/tabular-ai/tabular-engine/pkg/models"
)

func sampleSnapshot() *models.SchemaSnapshot {
	return &models.SchemaSnapshot{
		Tables: []models.SnapshotTable{
			{
				Schema: "public",
				Name:   "orders",
				Columns: []models.SnapshotColumn{
					{Name: "id", DataType: "uuid", IsPrimary: true},
					{Name: "customer_id", DataType: "uuid"},
					{Name: "total", DataType: "numeric", IsNullable: true},
				},
				ForeignKeys: []models.SnapshotForeignKey{
					{Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"},
				},
			},
			{
				Schema: "public",
				Name:   "customers",
				Columns: []models.SnapshotColumn{
					{Name: "id", DataType: "uuid", IsPrimary: true},
					{Name: "name", DataType: "text"},
				},
			},
		},
	}
}

func TestRenderSchema(t *testing.T) {
	rendered := RenderSchema(sampleSnapshot())

	if !strings.Contains(rendered, "## orders") {
		t.Error("expected orders heading")
	}
	if !strings.Contains(rendered, "each row is one order") {
		t.Errorf("expected singular entity hint, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, "- id (uuid) [PK]") {
		t.Error("expected primary key flag")
	}
	if !strings.Contains(rendered, "- total (numeric) (nullable)") {
		t.Error("expected nullable flag")
	}
	if !strings.Contains(rendered, "FK: customer_id -> customers.id") {
		t.Error("expected foreign key line")
	}
}

func TestRenderSchema_Empty(t *testing.T) {
	if got := RenderSchema(nil); !strings.Contains(got, "no tables") {
		t.Errorf("unexpected render for nil snapshot: %q", got)
	}
	if got := RenderSchema(&models.SchemaSnapshot{}); !strings.Contains(got, "no tables") {
		t.Errorf("unexpected render for empty snapshot: %q", got)
	}
}

func TestRenderSchema_CapsOutput(t *testing.T) {
	snapshot := &models.SchemaSnapshot{}
	for i := 0; i < 500; i++ {
		table := models.SnapshotTable{
			Schema: "public",
			Name:   strings.Repeat("x", 20) + "_table",
		}
		for j := 0; j < 20; j++ {
			table.Columns = append(table.Columns, models.SnapshotColumn{
				Name:     strings.Repeat("c", 30),
				DataType: "text",
			})
		}
		snapshot.Tables = append(snapshot.Tables, table)
	}

	rendered := RenderSchema(snapshot)

	// The cap plus the overflow summary line keeps output bounded.
	if len(rendered) > MaxSchemaChars*4 {
		t.Errorf("rendered schema too large: %d chars", len(rendered))
	}
	if !strings.Contains(rendered, "columns omitted for brevity") {
		t.Error("expected overflow summary for tables past the cap")
	}
}

func TestBuildSynthesisPrompt(t *testing.T) {
	history := []models.Exchange{
		{Question: "How many customers?", SQL: "SELECT COUNT(*) FROM customers"},
	}

	prompt := BuildSynthesisPrompt(sampleSnapshot(), history, "How many orders last month?", "postgres")

	if !strings.Contains(prompt, "# Database Schema (postgres)") {
		t.Error("expected dialect in schema heading")
	}
	if !strings.Contains(prompt, "Q: How many customers?") {
		t.Error("expected history question")
	}
	if !strings.Contains(prompt, "SQL: SELECT COUNT(*) FROM customers") {
		t.Error("expected history SQL")
	}
	if !strings.Contains(prompt, "How many orders last month?") {
		t.Error("expected current question")
	}
}

func TestBuildSynthesisPrompt_NoHistory(t *testing.T) {
	prompt := BuildSynthesisPrompt(sampleSnapshot(), nil, "count orders", "postgres")

	if strings.Contains(prompt, "Conversation So Far") {
		t.Error("history section should be omitted when empty")
	}
}

func TestEntityHint(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{"orders", "order"},
		{"order_items", "order item"},
		{"status", ""}, // already singular
	}

	for _, tt := range tests {
		if got := entityHint(tt.table); got != tt.want {
			t.Errorf("entityHint(%q) = %q, want %q", tt.table, got, tt.want)
		}
	}
}
