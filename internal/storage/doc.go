// Package storage provides SQLite-based persistence for the repair guide
// catalog, the device alias table and the persistent search cache.
//
// # Database Schema
//
// Tables:
//   - guides: offline repair guides; list fields are stored as JSON
//   - device_aliases: alias -> canonical device id, the source for alias reloads
//   - search_cache: fingerprinted result sets with expiry and hit counts
//
// The schema is versioned with semantic versions and migrated on open.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.repairsearch/repairsearch.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	// Load the embedded catalog on first start
//	_, err = storage.Seed(ctx, db, aliases, guides)
//
//	guides, err := storage.LoadGuides(ctx, db)
//
// # Transactions
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.UpsertAlias(ctx, &storage.Alias{Alias: "スイッチ", Canonical: "Nintendo Switch"})
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go, no CGO). Building with
// the sqlite_vec tag switches to github.com/mattn/go-sqlite3.
package storage
