// Package migrations registers the shop's schema changes. Import it for its
// side effects before running a migration.Runner.
package migrations
