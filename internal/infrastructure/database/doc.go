// Package database provides SQLite connectivity for the entity catalogue.
//
// This package manages:
//   - Database connection with WAL mode and a busy timeout
//   - Schema migrations read from an fs.FS (see the migrations package)
//   - Transaction helper (InTx)
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are additive: new columns must be NULLABLE or carry a
// DEFAULT, and each .up.sql has a matching .down.sql.
package database
