// Package database provides connection management for MySQL, PostgreSQL and
// SQLite through Bun, table creation with foreign keys, SQL seed files, configuration types,
// logging, health checks, and SQL error classification.
package database
