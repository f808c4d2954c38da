package postgres

import "embed"

// MigrationsDir is the directory inside Migrations holding the goose SQL files.
const MigrationsDir = "migrations"

// Migrations contains the schema migrations, applied with goose.SetBaseFS.
//
//go:embed migrations/*.sql
var Migrations embed.FS
