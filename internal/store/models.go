package store

import "time"

type TestStatus string

const (
	StatusDraft     TestStatus = "draft"
	StatusActive    TestStatus = "active"
	StatusCompleted TestStatus = "completed"
	StatusCancelled TestStatus = "cancelled"
)

// Test is one content experiment: two or more variants of a post
// competing on the same platform.
type Test struct {
	ID               string
	UserID           string
	Name             string
	Platform         string // "twitter", "linkedin", "instagram", ...
	Status           TestStatus
	StartedAt        *time.Time
	DurationHours    int
	WinningVariantID *string
	ConfidenceLevel  *float64 // 0-100, set only when completed

	// Per-test auto-completion policy
	AutoCompleteEnabled bool
	MinimumSampleSize   int
	ConfidenceThreshold float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Variant is one alternative version of the post under test, with its
// accumulated engagement counters.
type Variant struct {
	ID          string
	TestID      string
	Label       string // "A", "B", "C", ...
	Content     string
	Impressions int
	Engagements int
	Clicks      int
	Shares      int
	Comments    int
	Likes       int
	CreatedAt   time.Time
}

// EngagementRate returns engagements per impression as a percentage.
// Zero impressions yield a zero rate.
func (v Variant) EngagementRate() float64 {
	if v.Impressions == 0 {
		return 0
	}
	return float64(v.Engagements) / float64(v.Impressions) * 100
}

// VariantMetrics is one ingestion update for a variant's counters.
// Values are absolute totals reported by the platform, not deltas.
type VariantMetrics struct {
	Impressions int
	Engagements int
	Clicks      int
	Shares      int
	Comments    int
	Likes       int
}
