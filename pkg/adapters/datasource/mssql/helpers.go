package mssql

import (
	"fmt"
	"strings"
)

// quoteName returns a bracket-quoted SQL Server identifier, escaping ] as ]].
// This matches what the QUOTENAME() built-in produces.
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// mapSQLServerType maps SQL Server type names to the engine's standard
// type names so results look consistent across adapters.
func mapSQLServerType(sqlServerType string) string {
	switch strings.ToUpper(sqlServerType) {
	case "TINYINT":
		return "TINYINT"
	case "SMALLINT":
		return "SMALLINT"
	case "INT":
		return "INTEGER"
	case "BIGINT":
		return "BIGINT"
	case "DECIMAL", "NUMERIC":
		return "NUMERIC"
	case "MONEY", "SMALLMONEY":
		return "MONEY"
	case "FLOAT":
		return "DOUBLE PRECISION"
	case "REAL":
		return "REAL"
	case "CHAR", "NCHAR":
		return "CHAR"
	case "VARCHAR", "NVARCHAR":
		return "VARCHAR"
	case "TEXT", "NTEXT":
		return "TEXT"
	case "BINARY", "VARBINARY":
		return "BYTEA"
	case "DATE":
		return "DATE"
	case "TIME":
		return "TIME"
	case "DATETIME", "DATETIME2", "SMALLDATETIME":
		return "TIMESTAMP"
	case "DATETIMEOFFSET":
		return "TIMESTAMP WITH TIME ZONE"
	case "BIT":
		return "BOOLEAN"
	case "UNIQUEIDENTIFIER":
		return "UUID"
	case "JSON":
		return "JSON"
	case "XML":
		return "XML"
	default:
		return strings.ToUpper(sqlServerType)
	}
}

// isStringType returns true if the type is a string type in SQL Server.
func isStringType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT", "NTEXT":
		return true
	}
	return false
}
