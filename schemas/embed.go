// Package schemas provides the embedded SQL schema for the scheduler store.
package schemas

import "embed"

// Migrations contains the SQL files applied to set up the MySQL schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS
