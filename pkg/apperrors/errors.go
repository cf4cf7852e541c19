package apperrors

import "errors"

var (
	// ErrNotFound is returned when a connection does not exist or does not
	// belong to the requesting tenant.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique constraint violations (duplicate names).
	ErrConflict = errors.New("conflict")
	// ErrCredentialIntegrity is returned when stored credentials fail
	// authenticated decryption. Never retried automatically.
	ErrCredentialIntegrity = errors.New("credential integrity check failed")
	// ErrConnectionUnreachable is returned when the target database cannot be
	// reached. Retryable by user action (edit or re-test the connection).
	ErrConnectionUnreachable = errors.New("connection unreachable")
	// ErrSchemaUnavailable is returned when no schema snapshot exists for a
	// connection. Callers may run discovery and retry once.
	ErrSchemaUnavailable = errors.New("schema snapshot unavailable")
	// ErrSchemaDiscovery is returned when schema introspection fails partway.
	// No partial snapshot is ever stored.
	ErrSchemaDiscovery = errors.New("schema discovery failed")
	// ErrQueryGeneration is returned when the language model output cannot be
	// parsed into a candidate query.
	ErrQueryGeneration = errors.New("query generation failed")
	// ErrQuerySafety is returned when generated SQL fails the read-only gate.
	// The statement is never executed.
	ErrQuerySafety = errors.New("query safety violation")
	// ErrQueryExecution is returned when a sandboxed execution fails
	// (timeout, connectivity loss, or database error).
	ErrQueryExecution = errors.New("query execution failed")
)
