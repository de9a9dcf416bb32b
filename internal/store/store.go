package store

import "context"

// Store defines the interface for test and variant storage operations.
type Store interface {
	// Test operations
	CreateTest(ctx context.Context, t *Test, variants []Variant) (*Test, error)
	GetTest(ctx context.Context, id string) (*Test, error)
	ListTests(ctx context.Context, userID string) ([]*Test, error)
	ActiveTests(ctx context.Context) ([]*Test, error)
	StartTest(ctx context.Context, id string) error
	CancelTest(ctx context.Context, id string) error
	CompleteTest(ctx context.Context, id, winningVariantID string, confidence float64) error
	DeleteTest(ctx context.Context, id string) error

	// Variant operations
	VariantsForTest(ctx context.Context, testID string) ([]Variant, error)
	UpdateVariantMetrics(ctx context.Context, variantID string, m VariantMetrics) error

	// Lifecycle
	Close() error
}
