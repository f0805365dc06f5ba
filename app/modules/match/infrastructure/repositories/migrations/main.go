package matchmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the match module schema migrations.
var Migrations = migrate.NewMigrations()
