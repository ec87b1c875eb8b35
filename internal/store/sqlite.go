package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/audience-chat/internal/domain"
	_ "modernc.org/sqlite"
)

// RetiredCategory marks catalogue categories that must not be offered.
const RetiredCategory = "NOT IN USE"

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		sku TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		buyer_category TEXT NOT NULL,
		product_category TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

	CREATE TABLE IF NOT EXISTS selections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id TEXT NOT NULL,
		categories_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_selections_thread ON selections(thread_id);
	CREATE INDEX IF NOT EXISTS idx_selections_created ON selections(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// SearchProducts ranks exact names first, then prefix matches, then
// substring matches.
func (s *SQLiteStore) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `
		SELECT sku, name, buyer_category, product_category
		FROM products
		WHERE name LIKE '%' || ? || '%'
		  AND buyer_category != ?
		  AND product_category != ?
		ORDER BY
			CASE
				WHEN name = ? COLLATE NOCASE THEN 10
				WHEN name LIKE ? || '%' THEN 8
				ELSE 6
			END DESC,
			name ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, query, RetiredCategory, RetiredCategory, query, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close product rows", "error", closeErr)
		}
	}()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.BuyerCategory, &p.ProductCategory); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// UpsertProducts creates or updates catalogue items in one transaction.
func (s *SQLiteStore) UpsertProducts(ctx context.Context, products []Product) error {
	return s.withRetry(ctx, "upsert products", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO products (sku, name, buyer_category, product_category)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(sku) DO UPDATE SET
				name = excluded.name,
				buyer_category = excluded.buyer_category,
				product_category = excluded.product_category`)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, p := range products {
			if _, err := stmt.ExecContext(ctx, p.SKU, p.Name, p.BuyerCategory, p.ProductCategory); err != nil {
				return fmt.Errorf("insert %s: %w", p.SKU, err)
			}
		}
		return tx.Commit()
	})
}

// CountProducts returns the number of catalogue items.
func (s *SQLiteStore) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// SaveSelection stores a committed selection.
func (s *SQLiteStore) SaveSelection(ctx context.Context, threadID string, categories []domain.Category) (int64, error) {
	if categories == nil {
		categories = []domain.Category{}
	}
	payload, err := json.Marshal(categories)
	if err != nil {
		return 0, fmt.Errorf("encode categories: %w", err)
	}

	var id int64
	err = s.withRetry(ctx, "save selection", func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO selections (thread_id, categories_json, created_at) VALUES (?, ?, ?)`,
			threadID, string(payload), time.Now().Unix())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ListSelections returns the selections of a thread, oldest first.
func (s *SQLiteStore) ListSelections(ctx context.Context, threadID string) ([]SavedSelection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, categories_json, created_at
		FROM selections WHERE thread_id = ?
		ORDER BY id ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close selection rows", "error", closeErr)
		}
	}()

	selections := []SavedSelection{}
	for rows.Next() {
		var sel SavedSelection
		var categoriesJSON string
		var createdAt int64
		if err := rows.Scan(&sel.ID, &sel.ThreadID, &categoriesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan selection row: %w", err)
		}
		if err := json.Unmarshal([]byte(categoriesJSON), &sel.Categories); err != nil {
			return nil, fmt.Errorf("decode selection %d: %w", sel.ID, err)
		}
		sel.CreatedAt = time.Unix(createdAt, 0)
		selections = append(selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return selections, nil
}

// CleanupExpiredSelections removes selections older than ttl.
func (s *SQLiteStore) CleanupExpiredSelections(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM selections WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired selections: %w", err)
	}
	return result.RowsAffected()
}

// withRetry retries op with exponential backoff while SQLite reports a
// lock conflict.
func (s *SQLiteStore) withRetry(ctx context.Context, name string, op func() error) error {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if !isConflict(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", name, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
