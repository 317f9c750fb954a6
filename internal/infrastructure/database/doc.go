// Package database opens the coordinator's SQLite command log and applies
// its schema migrations.
//
// The database is optional. When enabled it stores one row per executed
// command (see package audit); session state itself stays in memory.
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are read from MigrationsFS, which package migrations fills with
// its embedded files. File names follow YYYYMMDD_HHMMSS_description.up.sql
// with a matching .down.sql.
package database
