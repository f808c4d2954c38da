// Package postgres provides PostgreSQL-specific implementations of the
// store interfaces: due-task queries with the atomic reminder guard,
// push subscription lifecycle, owner email lookup and the append-only
// notification audit log. The goose migrations defining the schema are
// embedded in the package.
package postgres
