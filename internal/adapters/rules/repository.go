package rules

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteRepository implements ports.RuleRepository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-based rule repository.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// ListEnabled returns enabled rules ordered by descending priority.
// Equal priorities keep a stable order by creation time.
func (r *SQLiteRepository) ListEnabled(ctx context.Context) ([]domain.VendorRule, error) {
	query := `
		SELECT rule_id, vendor_name, product_family, regex_pattern, keyword,
		       priority, enabled, created_at, updated_by
		FROM vendor_product_rules
		WHERE enabled = 1
		ORDER BY priority DESC, created_at ASC, rule_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rules failed: %w", err)
	}
	defer rows.Close()

	var out []domain.VendorRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// Upsert inserts or updates a rule by its ID.
func (r *SQLiteRepository) Upsert(ctx context.Context, rule domain.VendorRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO vendor_product_rules (
			rule_id, vendor_name, product_family, regex_pattern, keyword,
			priority, enabled, created_at, updated_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rule_id) DO UPDATE SET
			vendor_name = excluded.vendor_name,
			product_family = excluded.product_family,
			regex_pattern = excluded.regex_pattern,
			keyword = excluded.keyword,
			priority = excluded.priority,
			enabled = excluded.enabled,
			updated_by = excluded.updated_by
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.VendorName, nullable(rule.ProductFamily), nullable(rule.RegexPattern),
		nullable(rule.Keyword), rule.Priority, boolToInt(rule.Enabled),
		rule.CreatedAt.Format(time.RFC3339), nullable(rule.UpdatedBy),
	)
	return err
}

// Seed inserts the default rule set, skipping any vendor+product pair that
// already exists. Safe to call on every startup.
func (r *SQLiteRepository) Seed(ctx context.Context) (int, error) {
	inserted := 0
	for _, rule := range defaultRules {
		var count int
		err := r.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM vendor_product_rules WHERE vendor_name = ? AND IFNULL(product_family, '') = ?",
			rule.VendorName, rule.ProductFamily,
		).Scan(&count)
		if err != nil {
			return inserted, fmt.Errorf("seed lookup failed: %w", err)
		}
		if count > 0 {
			continue
		}

		rule.ID = uuid.NewString()
		rule.CreatedAt = time.Now().UTC()
		rule.Enabled = true
		rule.UpdatedBy = "system_seed"
		if err := r.Upsert(ctx, rule); err != nil {
			return inserted, fmt.Errorf("seed insert failed: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// Count returns the total number of rules.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vendor_product_rules").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanRule(rows *sql.Rows) (domain.VendorRule, error) {
	var rule domain.VendorRule
	var productFamily, regexPattern, keyword, updatedBy sql.NullString
	var enabled int
	var createdAt string

	err := rows.Scan(
		&rule.ID, &rule.VendorName, &productFamily, &regexPattern, &keyword,
		&rule.Priority, &enabled, &createdAt, &updatedBy,
	)
	if err != nil {
		return rule, err
	}

	rule.ProductFamily = productFamily.String
	rule.RegexPattern = regexPattern.String
	rule.Keyword = keyword.String
	rule.UpdatedBy = updatedBy.String
	rule.Enabled = enabled != 0
	rule.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return rule, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
