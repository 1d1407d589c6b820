//go:build integration

// Package testdb provides a migrated PostgreSQL database for integration tests.
//
// Open connects to POSTING_TEST_DATABASE_URL when it is set, which is how CI
// points tests at a service container. Otherwise it starts a disposable
// container with testcontainers-go. Either way the embedded migrations are
// applied before the pool is returned.
//
// Tests share one database, so each test should scope its rows to a tenant
// from UniqueTenant rather than truncating tables.
package testdb
