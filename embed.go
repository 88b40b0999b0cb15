// Package domainstack exposes repo-level embedded assets.
package domainstack

import "embed"

// Migrations holds the goose SQL migrations applied by the migrate command.
//
//go:embed migrations/*.sql
var Migrations embed.FS
