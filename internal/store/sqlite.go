// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

// Package store persists tenants' catalogs, transactions, mined rules
// and user accounts in SQLite. It implements recommend.DataProvider.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/rameshwar8767/shopfusion/internal/metrics"
	"github.com/rameshwar8767/shopfusion/internal/recommend"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when registering an email that already
// has an account.
var ErrDuplicateEmail = errors.New("email already registered")

// User is a retailer account. The user id doubles as the tenant id for
// all retail data the account owns.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}

// Store wraps a SQLite database. Safe for concurrent use; the pool is
// capped at one connection to avoid writer lock errors.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database in dataDir and applies pending
// migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "shopfusion.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// parseMigrationVersion extracts the numeric prefix of "NNN_name.sql".
func parseMigrationVersion(name string) (int, error) {
	idx := strings.Index(name, "_")
	if idx <= 0 {
		return 0, fmt.Errorf("malformed migration filename %q", name)
	}
	version, err := strconv.Atoi(name[:idx])
	if err != nil {
		return 0, fmt.Errorf("malformed migration version in %q: %w", name, err)
	}
	return version, nil
}

// ---------- Users ----------

// CreateUser inserts a new account. Returns ErrDuplicateEmail when the
// email is taken.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.CreatedAt.UTC())
	metrics.RecordDBQuery("insert", "users", time.Since(start), err)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateEmail
	}
	return err
}

// UserByEmail fetches an account by email. Returns ErrNotFound for
// unknown emails.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	start := time.Now()
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt)
	metrics.RecordDBQuery("select", "users", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// ---------- Products ----------

// UpsertProduct inserts or updates a product by (tenant, product_id).
func (s *Store) UpsertProduct(ctx context.Context, p recommend.Product) error {
	start := time.Now()
	var expiry any
	if p.ExpiryDate != nil {
		expiry = p.ExpiryDate.UTC().Format(time.RFC3339)
	}
	status := p.Status
	if status == "" {
		status = recommend.ProductActive
	}
	visible := 1
	if status == recommend.ProductExpired {
		visible = 0
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, tenant_id, product_id, name, category, description,
			price, stock, discount_pct, expiry_date, status, visible)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, product_id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			description = excluded.description,
			price = excluded.price,
			stock = excluded.stock,
			discount_pct = excluded.discount_pct,
			expiry_date = excluded.expiry_date,
			status = excluded.status,
			visible = excluded.visible`,
		p.ID, p.TenantID, p.EffectiveID(), p.Name, p.Category, p.Description,
		p.Price, p.Stock, p.Discount, expiry, string(status), visible)
	metrics.RecordDBQuery("upsert", "products", time.Since(start), err)
	return err
}

// Products returns all products for a tenant.
func (s *Store) Products(ctx context.Context, tenantID string) ([]recommend.Product, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, name, category, description, price, stock,
			discount_pct, expiry_date, status
		FROM products WHERE tenant_id = ? ORDER BY product_id`, tenantID)
	metrics.RecordDBQuery("select", "products", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recommend.Product
	for rows.Next() {
		var p recommend.Product
		var expiry sql.NullString
		var status string
		if err := rows.Scan(&p.ID, &p.ProductID, &p.Name, &p.Category, &p.Description,
			&p.Price, &p.Stock, &p.Discount, &expiry, &status); err != nil {
			return nil, err
		}
		p.TenantID = tenantID
		p.Status = recommend.ProductStatus(status)
		if expiry.Valid && expiry.String != "" {
			t, err := time.Parse(time.RFC3339, expiry.String)
			if err != nil {
				return nil, fmt.Errorf("parsing expiry for product %s: %w", p.ProductID, err)
			}
			p.ExpiryDate = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProductMap returns a tenant's products keyed by effective product id.
func (s *Store) ProductMap(ctx context.Context, tenantID string) (map[string]recommend.Product, error) {
	products, err := s.Products(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]recommend.Product, len(products))
	for _, p := range products {
		out[p.EffectiveID()] = p
	}
	return out, nil
}

// MarkExpired flags products as EXPIRED and hides them from catalog
// listings. Already-expired products are left untouched.
func (s *Store) MarkExpired(ctx context.Context, tenantID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	start := time.Now()
	placeholders := strings.Repeat("?,", len(productIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(productIDs)+1)
	args = append(args, tenantID)
	for _, id := range productIDs {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE products SET status = 'EXPIRED', visible = 0
		WHERE tenant_id = ? AND product_id IN (%s)`, placeholders), args...)
	metrics.RecordDBQuery("update", "products", time.Since(start), err)
	return err
}

// ---------- Transactions ----------

// InsertTransaction stores a transaction and its line items atomically.
func (s *Store) InsertTransaction(ctx context.Context, txn recommend.Transaction) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, tenant_id, shopper_id, created_at) VALUES (?, ?, ?, ?)`,
		txn.ID, txn.TenantID, txn.ShopperID, txn.CreatedAt.UTC()); err != nil {
		metrics.RecordDBQuery("insert", "transactions", time.Since(start), err)
		return err
	}
	for _, item := range txn.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_items (transaction_id, product_id, product_name, quantity, price)
			VALUES (?, ?, ?, ?, ?)`,
			txn.ID, item.ProductID, item.ProductName, item.Quantity, item.Price); err != nil {
			metrics.RecordDBQuery("insert", "transactions", time.Since(start), err)
			return err
		}
	}
	err = tx.Commit()
	metrics.RecordDBQuery("insert", "transactions", time.Since(start), err)
	return err
}

// Transactions returns all transactions for a tenant with their items,
// oldest first.
func (s *Store) Transactions(ctx context.Context, tenantID string) ([]recommend.Transaction, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shopper_id, created_at FROM transactions
		WHERE tenant_id = ? ORDER BY created_at, id`, tenantID)
	metrics.RecordDBQuery("select", "transactions", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recommend.Transaction
	index := make(map[string]int)
	for rows.Next() {
		var txn recommend.Transaction
		if err := rows.Scan(&txn.ID, &txn.ShopperID, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txn.TenantID = tenantID
		index[txn.ID] = len(out)
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT ti.transaction_id, ti.product_id, ti.product_name, ti.quantity, ti.price
		FROM transaction_items ti
		JOIN transactions t ON t.id = ti.transaction_id
		WHERE t.tenant_id = ?
		ORDER BY ti.rowid`, tenantID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var txnID string
		var item recommend.TransactionItem
		if err := itemRows.Scan(&txnID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		if i, ok := index[txnID]; ok {
			out[i].Items = append(out[i].Items, item)
		}
	}
	return out, itemRows.Err()
}

// ShopperHistory returns the distinct product ids a shopper has bought,
// ordered by first purchase.
func (s *Store) ShopperHistory(ctx context.Context, tenantID, shopperID string) ([]string, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT ti.product_id, MIN(t.created_at) AS first_bought
		FROM transaction_items ti
		JOIN transactions t ON t.id = ti.transaction_id
		WHERE t.tenant_id = ? AND t.shopper_id = ? AND ti.product_id != ''
		GROUP BY ti.product_id
		ORDER BY first_bought`, tenantID, shopperID)
	metrics.RecordDBQuery("select", "transactions", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		// MIN() strips the column's declared type, so the driver
		// returns the raw TEXT value rather than a time.Time.
		var firstBought string
		if err := rows.Scan(&id, &firstBought); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Tenants lists tenant ids that have at least one transaction.
func (s *Store) Tenants(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT tenant_id FROM transactions ORDER BY tenant_id`)
	metrics.RecordDBQuery("select", "transactions", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ---------- Association rules ----------

// ReplaceRules swaps a tenant's rule set wholesale inside one
// transaction, so readers never observe a mix of old and new rules.
func (s *Store) ReplaceRules(ctx context.Context, tenantID string, rules []recommend.AssociationRule) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM association_rules WHERE tenant_id = ?`, tenantID); err != nil {
		metrics.RecordDBQuery("delete", "association_rules", time.Since(start), err)
		return err
	}
	now := time.Now().UTC()
	for i := range rules {
		ante, err := json.Marshal(rules[i].Antecedents)
		if err != nil {
			return err
		}
		cons, err := json.Marshal(rules[i].Consequents)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO association_rules (tenant_id, antecedents, consequents, support, confidence, lift, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tenantID, string(ante), string(cons),
			rules[i].Support, rules[i].Confidence, rules[i].Lift, now); err != nil {
			metrics.RecordDBQuery("insert", "association_rules", time.Since(start), err)
			return err
		}
	}
	err = tx.Commit()
	metrics.RecordDBQuery("insert", "association_rules", time.Since(start), err)
	return err
}

// RuleSort names the orderings Rules supports.
type RuleSort string

const (
	RuleSortLift       RuleSort = "lift"
	RuleSortConfidence RuleSort = "confidence"
	RuleSortSupport    RuleSort = "support"
)

// Rules returns one page of a tenant's rules in descending order of the
// chosen metric. Unknown sort fields fall back to lift.
func (s *Store) Rules(ctx context.Context, tenantID string, sortBy RuleSort, limit, offset int) ([]recommend.AssociationRule, error) {
	column := "lift"
	switch sortBy {
	case RuleSortConfidence:
		column = "confidence"
	case RuleSortSupport:
		column = "support"
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT antecedents, consequents, support, confidence, lift
		FROM association_rules WHERE tenant_id = ?
		ORDER BY %s DESC, id LIMIT ? OFFSET ?`, column), tenantID, limit, offset)
	metrics.RecordDBQuery("select", "association_rules", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []recommend.AssociationRule{}
	for rows.Next() {
		var rule recommend.AssociationRule
		var ante, cons string
		if err := rows.Scan(&ante, &cons, &rule.Support, &rule.Confidence, &rule.Lift); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ante), &rule.Antecedents); err != nil {
			return nil, fmt.Errorf("decoding antecedents: %w", err)
		}
		if err := json.Unmarshal([]byte(cons), &rule.Consequents); err != nil {
			return nil, fmt.Errorf("decoding consequents: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// CountRules returns the total number of rules stored for a tenant.
func (s *Store) CountRules(ctx context.Context, tenantID string) (int, error) {
	start := time.Now()
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM association_rules WHERE tenant_id = ?`, tenantID).Scan(&n)
	metrics.RecordDBQuery("select", "association_rules", time.Since(start), err)
	return n, err
}
