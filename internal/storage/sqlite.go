package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Guide operations

func upsertGuide(ctx context.Context, q querier, guide *Guide) error {
	query := `
		INSERT INTO guides (id, title, device_id, category, url, difficulty, success_rate,
		                    time_estimate, cost_estimate, details, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			device_id = excluded.device_id,
			category = excluded.category,
			url = excluded.url,
			difficulty = excluded.difficulty,
			success_rate = excluded.success_rate,
			time_estimate = excluded.time_estimate,
			cost_estimate = excluded.cost_estimate,
			details = excluded.details,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	details := guide.Details
	if details == "" {
		details = "{}"
	}
	_, err := q.ExecContext(ctx, query,
		guide.ID, guide.Title, guide.DeviceID, guide.Category, guide.URL, guide.Difficulty,
		guide.SuccessRate, guide.TimeEstimate, guide.CostEstimate, details, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert guide %s: %w", guide.ID, err)
	}
	guide.Details = details
	guide.UpdatedAt = now
	return nil
}

const guideColumns = `id, title, device_id, category, url, difficulty, success_rate,
		       time_estimate, cost_estimate, details, created_at, updated_at`

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGuide(row rowScanner) (*Guide, error) {
	var g Guide
	var category, url, difficulty, timeEstimate, costEstimate sql.NullString
	err := row.Scan(&g.ID, &g.Title, &g.DeviceID, &category, &url, &difficulty,
		&g.SuccessRate, &timeEstimate, &costEstimate, &g.Details, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Category = category.String
	g.URL = url.String
	g.Difficulty = difficulty.String
	g.TimeEstimate = timeEstimate.String
	g.CostEstimate = costEstimate.String
	return &g, nil
}

func getGuide(ctx context.Context, q querier, id string) (*Guide, error) {
	row := q.QueryRowContext(ctx, "SELECT "+guideColumns+" FROM guides WHERE id = ?", id)
	g, err := scanGuide(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func listGuides(ctx context.Context, q querier) ([]*Guide, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+guideColumns+" FROM guides ORDER BY device_id, id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var guides []*Guide
	for rows.Next() {
		g, err := scanGuide(rows)
		if err != nil {
			return nil, err
		}
		guides = append(guides, g)
	}
	return guides, rows.Err()
}

func count(ctx context.Context, q querier, table string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func deleteGuide(ctx context.Context, q querier, id string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM guides WHERE id = ?", id)
	return err
}

func (s *SQLiteStorage) UpsertGuide(ctx context.Context, guide *Guide) error {
	return upsertGuide(ctx, s.querier(), guide)
}

func (s *SQLiteStorage) GetGuide(ctx context.Context, id string) (*Guide, error) {
	return getGuide(ctx, s.querier(), id)
}

func (s *SQLiteStorage) ListGuides(ctx context.Context) ([]*Guide, error) {
	return listGuides(ctx, s.querier())
}

func (s *SQLiteStorage) CountGuides(ctx context.Context) (int, error) {
	return count(ctx, s.querier(), "guides")
}

func (s *SQLiteStorage) DeleteGuide(ctx context.Context, id string) error {
	return deleteGuide(ctx, s.querier(), id)
}

// Alias operations

func upsertAlias(ctx context.Context, q querier, alias *Alias) error {
	query := `
		INSERT INTO device_aliases (alias, canonical, priority, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(alias) DO UPDATE SET
			canonical = excluded.canonical,
			priority = excluded.priority
	`
	now := time.Now()
	if _, err := q.ExecContext(ctx, query, alias.Alias, alias.Canonical, alias.Priority, now); err != nil {
		return fmt.Errorf("failed to upsert alias %q: %w", alias.Alias, err)
	}

	// LastInsertId is unreliable for the update branch of an upsert
	if err := q.QueryRowContext(ctx, "SELECT id, created_at FROM device_aliases WHERE alias = ?", alias.Alias).
		Scan(&alias.ID, &alias.CreatedAt); err != nil {
		return fmt.Errorf("failed to read alias %q: %w", alias.Alias, err)
	}
	return nil
}

func listAliases(ctx context.Context, q querier) ([]types.DeviceAlias, error) {
	rows, err := q.QueryContext(ctx, "SELECT alias, canonical, priority FROM device_aliases ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var aliases []types.DeviceAlias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.Alias, &a.Canonical, &a.Priority); err != nil {
			return nil, err
		}
		aliases = append(aliases, a.ToTypesAlias())
	}
	return aliases, rows.Err()
}

func deleteAlias(ctx context.Context, q querier, alias string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM device_aliases WHERE alias = ?", alias)
	return err
}

func (s *SQLiteStorage) UpsertAlias(ctx context.Context, alias *Alias) error {
	return upsertAlias(ctx, s.querier(), alias)
}

func (s *SQLiteStorage) ListAliases(ctx context.Context) ([]types.DeviceAlias, error) {
	return listAliases(ctx, s.querier())
}

func (s *SQLiteStorage) CountAliases(ctx context.Context) (int, error) {
	return count(ctx, s.querier(), "device_aliases")
}

func (s *SQLiteStorage) DeleteAlias(ctx context.Context, alias string) error {
	return deleteAlias(ctx, s.querier(), alias)
}

// Search cache operations

func loadCacheEntry(ctx context.Context, q querier, fingerprint string) (*CacheEntry, error) {
	var e CacheEntry
	var inserted, expires int64
	err := q.QueryRowContext(ctx, `
		SELECT fingerprint, payload, inserted_at, expires_at, hit_count
		FROM search_cache
		WHERE fingerprint = ?
	`, fingerprint).Scan(&e.Fingerprint, &e.Payload, &inserted, &expires, &e.HitCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := q.ExecContext(ctx, "UPDATE search_cache SET hit_count = hit_count + 1 WHERE fingerprint = ?", fingerprint); err != nil {
		return nil, fmt.Errorf("failed to record cache hit: %w", err)
	}

	e.InsertedAt = time.Unix(0, inserted)
	e.ExpiresAt = time.Unix(0, expires)
	e.HitCount++
	return &e, nil
}

func saveCacheEntry(ctx context.Context, q querier, e *CacheEntry) error {
	query := `
		INSERT INTO search_cache (fingerprint, payload, inserted_at, expires_at, hit_count)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(fingerprint) DO UPDATE SET
			payload = excluded.payload,
			inserted_at = excluded.inserted_at,
			expires_at = excluded.expires_at,
			hit_count = 0
	`
	_, err := q.ExecContext(ctx, query, e.Fingerprint, e.Payload, e.InsertedAt.UnixNano(), e.ExpiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

func deleteCacheEntry(ctx context.Context, q querier, fingerprint string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM search_cache WHERE fingerprint = ?", fingerprint)
	return err
}

func purgeExpiredCache(ctx context.Context, q querier, now time.Time) (int, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM search_cache WHERE expires_at <= ?", now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStorage) LoadCacheEntry(ctx context.Context, fingerprint string) (*CacheEntry, error) {
	return loadCacheEntry(ctx, s.querier(), fingerprint)
}

func (s *SQLiteStorage) SaveCacheEntry(ctx context.Context, entry *CacheEntry) error {
	return saveCacheEntry(ctx, s.querier(), entry)
}

func (s *SQLiteStorage) DeleteCacheEntry(ctx context.Context, fingerprint string) error {
	return deleteCacheEntry(ctx, s.querier(), fingerprint)
}

func (s *SQLiteStorage) CountCacheEntries(ctx context.Context) (int, error) {
	return count(ctx, s.querier(), "search_cache")
}

func (s *SQLiteStorage) PurgeExpiredCache(ctx context.Context, now time.Time) (int, error) {
	return purgeExpiredCache(ctx, s.querier(), now)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	var err error
	if status.Guides, err = s.CountGuides(ctx); err != nil {
		return nil, err
	}
	if status.Aliases, err = s.CountAliases(ctx); err != nil {
		return nil, err
	}
	if status.CacheEntries, err = s.CountCacheEntries(ctx); err != nil {
		return nil, err
	}
	if status.SchemaVersion, err = SchemaVersion(ctx, s.db); err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		CatalogSeeded:      status.Guides > 0 && status.Aliases > 0,
	}

	return status, nil
}

// Transaction implementations

func (t *sqliteTx) UpsertGuide(ctx context.Context, guide *Guide) error {
	return upsertGuide(ctx, t.querier(), guide)
}

func (t *sqliteTx) GetGuide(ctx context.Context, id string) (*Guide, error) {
	return getGuide(ctx, t.querier(), id)
}

func (t *sqliteTx) ListGuides(ctx context.Context) ([]*Guide, error) {
	return listGuides(ctx, t.querier())
}

func (t *sqliteTx) CountGuides(ctx context.Context) (int, error) {
	return count(ctx, t.querier(), "guides")
}

func (t *sqliteTx) DeleteGuide(ctx context.Context, id string) error {
	return deleteGuide(ctx, t.querier(), id)
}

func (t *sqliteTx) UpsertAlias(ctx context.Context, alias *Alias) error {
	return upsertAlias(ctx, t.querier(), alias)
}

func (t *sqliteTx) ListAliases(ctx context.Context) ([]types.DeviceAlias, error) {
	return listAliases(ctx, t.querier())
}

func (t *sqliteTx) CountAliases(ctx context.Context) (int, error) {
	return count(ctx, t.querier(), "device_aliases")
}

func (t *sqliteTx) DeleteAlias(ctx context.Context, alias string) error {
	return deleteAlias(ctx, t.querier(), alias)
}

func (t *sqliteTx) LoadCacheEntry(ctx context.Context, fingerprint string) (*CacheEntry, error) {
	return loadCacheEntry(ctx, t.querier(), fingerprint)
}

func (t *sqliteTx) SaveCacheEntry(ctx context.Context, entry *CacheEntry) error {
	return saveCacheEntry(ctx, t.querier(), entry)
}

func (t *sqliteTx) DeleteCacheEntry(ctx context.Context, fingerprint string) error {
	return deleteCacheEntry(ctx, t.querier(), fingerprint)
}

func (t *sqliteTx) CountCacheEntries(ctx context.Context) (int, error) {
	return count(ctx, t.querier(), "search_cache")
}

func (t *sqliteTx) PurgeExpiredCache(ctx context.Context, now time.Time) (int, error) {
	return purgeExpiredCache(ctx, t.querier(), now)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return nil, errors.New("status is not available inside a transaction")
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
