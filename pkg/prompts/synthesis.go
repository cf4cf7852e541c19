// Package prompts builds the LLM prompts used for query synthesis.
package prompts

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/tabular-ai/tabular-engine/pkg/models"
)

// MaxSchemaChars caps how much rendered schema goes into one prompt.
// Tables past the cap are summarized by name only so the prompt stays
// inside the model's context window.
const MaxSchemaChars = 8000

// SynthesisSystemMessage instructs the model on its role and output format.
const SynthesisSystemMessage = `You are a SQL generation assistant for a business analytics tool.
You translate natural-language questions into a single read-only SQL query
against the schema provided.

Rules:
- Generate exactly one SELECT statement (a WITH ... SELECT is fine).
- Never generate INSERT, UPDATE, DELETE, DDL, or multiple statements.
- Only reference tables and columns that appear in the schema.
- If the question cannot be answered from the schema, or is ambiguous,
  ask for clarification instead of guessing.

Respond with a single JSON object, no other text:
{
  "sql": "the SQL query, or empty string if clarification is needed",
  "explanation": "one or two sentences on how the query answers the question",
  "confidence": 0-100,
  "needs_clarification": false,
  "clarification_question": "set only when needs_clarification is true",
  "tables_used": ["table names referenced by the query"]
}`

// BuildSynthesisPrompt creates the user prompt for one synthesis request:
// rendered schema, recent conversation history, and the question.
func BuildSynthesisPrompt(snapshot *models.SchemaSnapshot, history []models.Exchange, question, dialect string) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("# Database Schema (%s)\n\n", dialect))
	prompt.WriteString(RenderSchema(snapshot))

	if len(history) > 0 {
		prompt.WriteString("\n# Conversation So Far\n\n")
		for _, ex := range history {
			prompt.WriteString(fmt.Sprintf("Q: %s\n", ex.Question))
			if ex.SQL != "" {
				prompt.WriteString(fmt.Sprintf("SQL: %s\n", ex.SQL))
			}
			prompt.WriteString("\n")
		}
	}

	prompt.WriteString("# Question\n\n")
	prompt.WriteString(question)
	prompt.WriteString("\n")

	return prompt.String()
}

// RenderSchema formats a schema snapshot as markdown for the prompt.
// Output is capped at MaxSchemaChars; tables past the cap are listed by
// name only.
func RenderSchema(snapshot *models.SchemaSnapshot) string {
	if snapshot == nil || len(snapshot.Tables) == 0 {
		return "(no tables discovered)\n"
	}

	var out strings.Builder
	var overflow []string

	for _, table := range snapshot.Tables {
		rendered := renderTable(table)
		if out.Len()+len(rendered) > MaxSchemaChars {
			overflow = append(overflow, table.QualifiedName())
			continue
		}
		out.WriteString(rendered)
	}

	if len(overflow) > 0 {
		out.WriteString(fmt.Sprintf("\nAdditional tables (columns omitted for brevity): %s\n",
			strings.Join(overflow, ", ")))
	}

	return out.String()
}

func renderTable(table models.SnapshotTable) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("## %s", table.QualifiedName()))
	if hint := entityHint(table.Name); hint != "" {
		b.WriteString(fmt.Sprintf(" (each row is one %s)", hint))
	}
	b.WriteString("\n")

	for _, col := range table.Columns {
		flags := ""
		if col.IsPrimary {
			flags += " [PK]"
		}
		if col.IsNullable {
			flags += " (nullable)"
		}
		b.WriteString(fmt.Sprintf("- %s (%s)%s\n", col.Name, col.DataType, flags))
	}

	for _, fk := range table.ForeignKeys {
		b.WriteString(fmt.Sprintf("- FK: %s -> %s.%s\n", fk.Column, fk.ReferencedTable, fk.ReferencedColumn))
	}

	b.WriteString("\n")
	return b.String()
}

// entityHint derives a singular entity name from a plural table name, so
// "order_items" reads as "each row is one order item". Returns empty when
// singularizing changes nothing.
func entityHint(tableName string) string {
	singular := inflection.Singular(tableName)
	if singular == tableName {
		return ""
	}
	return strings.ReplaceAll(singular, "_", " ")
}
