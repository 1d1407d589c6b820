// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package.
// It handles the details of query execution, transaction scoping, error
// mapping and the translation between JSONB document rows and domain
// records. The schema ships with the package as embedded goose migrations.
package postgres
