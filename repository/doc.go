// Package repository holds the Bun models of the food database and the
// repositories that query them.
package repository
