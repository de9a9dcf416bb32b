package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotActive      = errors.New("test is not active")
	ErrInvalidMetrics = errors.New("invalid metrics")
)

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tests (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    platform TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    started_at INTEGER,
    duration_hours INTEGER NOT NULL DEFAULT 0,
    winning_variant_id TEXT,
    confidence_level REAL,
    auto_complete_enabled INTEGER NOT NULL DEFAULT 1,
    minimum_sample_size INTEGER NOT NULL DEFAULT 100,
    confidence_threshold REAL NOT NULL DEFAULT 95,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_tests_user ON tests(user_id);
CREATE INDEX IF NOT EXISTS idx_tests_status ON tests(status);

CREATE TABLE IF NOT EXISTS variants (
    id TEXT PRIMARY KEY,
    test_id TEXT NOT NULL,
    label TEXT NOT NULL,
    content TEXT NOT NULL,
    impressions INTEGER NOT NULL DEFAULT 0,
    engagements INTEGER NOT NULL DEFAULT 0,
    clicks INTEGER NOT NULL DEFAULT 0,
    shares INTEGER NOT NULL DEFAULT 0,
    comments INTEGER NOT NULL DEFAULT 0,
    likes INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (test_id) REFERENCES tests(id),
    UNIQUE (test_id, label)
);

CREATE INDEX IF NOT EXISTS idx_variants_test ON variants(test_id);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateTest(ctx context.Context, t *Test, variants []Variant) (*Test, error) {
	if len(variants) < 2 {
		return nil, fmt.Errorf("a test needs at least 2 variants, got %d", len(variants))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = StatusDraft
	t.CreatedAt = time.Unix(now, 0)
	t.UpdatedAt = time.Unix(now, 0)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tests (id, user_id, name, platform, status, duration_hours,
		    auto_complete_enabled, minimum_sample_size, confidence_threshold, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'draft', ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Platform, t.DurationHours,
		boolToInt(t.AutoCompleteEnabled), t.MinimumSampleSize, t.ConfidenceThreshold, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert test: %w", err)
	}

	for i := range variants {
		v := &variants[i]
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.TestID = t.ID
		v.CreatedAt = time.Unix(now, 0)

		_, err = tx.ExecContext(ctx,
			`INSERT INTO variants (id, test_id, label, content, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			v.ID, v.TestID, v.Label, v.Content, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert variant %q: %w", v.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return t, nil
}

const testColumns = `id, user_id, name, platform, status, started_at, duration_hours,
	winning_variant_id, confidence_level, auto_complete_enabled,
	minimum_sample_size, confidence_threshold, created_at, updated_at`

func (s *SQLiteStore) GetTest(ctx context.Context, id string) (*Test, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = ?`, id)

	test, err := scanTest(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (s *SQLiteStore) ListTests(ctx context.Context, userID string) ([]*Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id`

	return s.queryTests(ctx, query, args...)
}

func (s *SQLiteStore) ActiveTests(ctx context.Context) ([]*Test, error) {
	return s.queryTests(ctx,
		`SELECT `+testColumns+` FROM tests WHERE status = 'active' ORDER BY created_at, id`)
}

func (s *SQLiteStore) queryTests(ctx context.Context, query string, args ...any) ([]*Test, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tests: %w", err)
	}
	defer rows.Close()

	var tests []*Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, test)
	}
	return tests, rows.Err()
}

func (s *SQLiteStore) StartTest(ctx context.Context, id string) error {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`UPDATE tests SET status = 'active', started_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'draft'`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to start test: %w", err)
	}
	return s.checkTransition(ctx, result, id)
}

func (s *SQLiteStore) CancelTest(ctx context.Context, id string) error {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`UPDATE tests SET status = 'cancelled', updated_at = ?
		 WHERE id = ? AND status IN ('draft', 'active')`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel test: %w", err)
	}
	return s.checkTransition(ctx, result, id)
}

// CompleteTest moves an active test to completed and stamps the winner
// and confidence in a single conditional update, so two callers racing
// to complete the same test cannot both succeed.
func (s *SQLiteStore) CompleteTest(ctx context.Context, id, winningVariantID string, confidence float64) error {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`UPDATE tests SET status = 'completed', winning_variant_id = ?, confidence_level = ?, updated_at = ?
		 WHERE id = ? AND status = 'active'`,
		winningVariantID, confidence, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete test: %w", err)
	}
	return s.checkTransition(ctx, result, id)
}

// checkTransition distinguishes "no such test" from "wrong status" when
// a conditional state update matched zero rows.
func (s *SQLiteStore) checkTransition(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM tests WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check test: %w", err)
	}
	return ErrNotActive
}

func (s *SQLiteStore) DeleteTest(ctx context.Context, id string) error {
	// First delete related variants
	_, err := s.db.ExecContext(ctx, `DELETE FROM variants WHERE test_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete variants: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) VariantsForTest(ctx context.Context, testID string) ([]Variant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, test_id, label, content, impressions, engagements, clicks, shares, comments, likes, created_at
		 FROM variants WHERE test_id = ? ORDER BY label`,
		testID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get variants: %w", err)
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		var createdAt int64
		if err := rows.Scan(&v.ID, &v.TestID, &v.Label, &v.Content,
			&v.Impressions, &v.Engagements, &v.Clicks, &v.Shares, &v.Comments, &v.Likes,
			&createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		v.CreatedAt = time.Unix(createdAt, 0)
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// UpdateVariantMetrics replaces a variant's counters with the given
// totals. Malformed counts are rejected here, before any calculation
// sees them.
func (s *SQLiteStore) UpdateVariantMetrics(ctx context.Context, variantID string, m VariantMetrics) error {
	if err := ValidateMetrics(m); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE variants SET impressions = ?, engagements = ?, clicks = ?, shares = ?, comments = ?, likes = ?
		 WHERE id = ?`,
		m.Impressions, m.Engagements, m.Clicks, m.Shares, m.Comments, m.Likes, variantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update metrics: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ValidateMetrics rejects negative counters and engagement counts that
// exceed impressions.
func ValidateMetrics(m VariantMetrics) error {
	counts := map[string]int{
		"impressions": m.Impressions,
		"engagements": m.Engagements,
		"clicks":      m.Clicks,
		"shares":      m.Shares,
		"comments":    m.Comments,
		"likes":       m.Likes,
	}
	for name, n := range counts {
		if n < 0 {
			return fmt.Errorf("%w: %s is negative (%d)", ErrInvalidMetrics, name, n)
		}
	}
	if m.Engagements > m.Impressions {
		return fmt.Errorf("%w: engagements (%d) exceed impressions (%d)",
			ErrInvalidMetrics, m.Engagements, m.Impressions)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTest(row scanner) (*Test, error) {
	var test Test
	var startedAt sql.NullInt64
	var winningVariantID sql.NullString
	var confidenceLevel sql.NullFloat64
	var autoComplete int
	var createdAt, updatedAt int64

	err := row.Scan(&test.ID, &test.UserID, &test.Name, &test.Platform, &test.Status,
		&startedAt, &test.DurationHours, &winningVariantID, &confidenceLevel,
		&autoComplete, &test.MinimumSampleSize, &test.ConfidenceThreshold,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		test.StartedAt = &t
	}
	if winningVariantID.Valid {
		id := winningVariantID.String
		test.WinningVariantID = &id
	}
	if confidenceLevel.Valid {
		c := confidenceLevel.Float64
		test.ConfidenceLevel = &c
	}
	test.AutoCompleteEnabled = autoComplete != 0
	test.CreatedAt = time.Unix(createdAt, 0)
	test.UpdatedAt = time.Unix(updatedAt, 0)

	return &test, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
