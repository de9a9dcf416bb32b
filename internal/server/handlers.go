package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/splitsignal/splitsignal/internal/engine"
	"github.com/splitsignal/splitsignal/internal/insights"
	"github.com/splitsignal/splitsignal/internal/stats"
	"github.com/splitsignal/splitsignal/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	TestsCount    int    `json:"tests_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(c *gin.Context) {
	tests, err := s.store.ListTests(c.Request.Context(), "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var dbSize int64
	row := s.store.DB().QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	_ = row.Scan(&dbSize)

	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		TestsCount:    len(tests),
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

type createVariantRequest struct {
	Label   string `json:"label" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type createTestRequest struct {
	UserID        string                 `json:"user_id" binding:"required"`
	Name          string                 `json:"name" binding:"required"`
	Platform      string                 `json:"platform" binding:"required"`
	DurationHours int                    `json:"duration_hours" binding:"gte=0"`
	Variants      []createVariantRequest `json:"variants" binding:"required,min=2,dive"`

	AutoCompleteEnabled *bool    `json:"auto_complete_enabled"`
	MinimumSampleSize   *int     `json:"minimum_sample_size" binding:"omitempty,gte=0"`
	ConfidenceThreshold *float64 `json:"confidence_threshold" binding:"omitempty,gt=0,lte=100"`
}

func (s *Server) handleCreateTest(c *gin.Context) {
	var req createTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	test := &store.Test{
		UserID:              req.UserID,
		Name:                req.Name,
		Platform:            req.Platform,
		DurationHours:       req.DurationHours,
		AutoCompleteEnabled: s.defaultPolicy.AutoCompleteEnabled,
		MinimumSampleSize:   s.defaultPolicy.MinimumSampleSize,
		ConfidenceThreshold: s.defaultPolicy.ConfidenceThreshold,
	}
	if req.AutoCompleteEnabled != nil {
		test.AutoCompleteEnabled = *req.AutoCompleteEnabled
	}
	if req.MinimumSampleSize != nil {
		test.MinimumSampleSize = *req.MinimumSampleSize
	}
	if req.ConfidenceThreshold != nil {
		test.ConfidenceThreshold = *req.ConfidenceThreshold
	}

	variants := make([]store.Variant, len(req.Variants))
	for i, v := range req.Variants {
		variants[i] = store.Variant{Label: v.Label, Content: v.Content}
	}

	created, err := s.store.CreateTest(c.Request.Context(), test, variants)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListTests(c *gin.Context) {
	tests, err := s.store.ListTests(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if tests == nil {
		tests = []*store.Test{}
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests})
}

func (s *Server) handleGetTest(c *gin.Context) {
	test, variants, ok := s.loadTest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"test": test, "variants": variants})
}

func (s *Server) handleStartTest(c *gin.Context) {
	err := s.store.StartTest(c.Request.Context(), c.Param("id"))
	if !s.checkTransitionErr(c, err, "only draft tests can be started") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

func (s *Server) handleCancelTest(c *gin.Context) {
	err := s.store.CancelTest(c.Request.Context(), c.Param("id"))
	if !s.checkTransitionErr(c, err, "only draft or active tests can be cancelled") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

type metricsRequest struct {
	VariantID   string `json:"variant_id"`
	Label       string `json:"label"`
	Impressions int    `json:"impressions" binding:"gte=0"`
	Engagements int    `json:"engagements" binding:"gte=0"`
	Clicks      int    `json:"clicks" binding:"gte=0"`
	Shares      int    `json:"shares" binding:"gte=0"`
	Comments    int    `json:"comments" binding:"gte=0"`
	Likes       int    `json:"likes" binding:"gte=0"`
}

func (s *Server) handleUpdateMetrics(c *gin.Context) {
	var req metricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	test, variants, ok := s.loadTest(c)
	if !ok {
		return
	}
	if test.Status != store.StatusActive {
		c.JSON(http.StatusConflict, gin.H{"error": "metrics can only be recorded on an active test"})
		return
	}

	variantID := req.VariantID
	if variantID == "" {
		for _, v := range variants {
			if v.Label == req.Label {
				variantID = v.ID
				break
			}
		}
	}
	if variantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variant_id or a known label is required"})
		return
	}

	m := store.VariantMetrics{
		Impressions: req.Impressions,
		Engagements: req.Engagements,
		Clicks:      req.Clicks,
		Shares:      req.Shares,
		Comments:    req.Comments,
		Likes:       req.Likes,
	}

	err := s.store.UpdateVariantMetrics(c.Request.Context(), variantID, m)
	if errors.Is(err, store.ErrInvalidMetrics) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "variant not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func (s *Server) handleResults(c *gin.Context) {
	test, variants, ok := s.loadTest(c)
	if !ok {
		return
	}

	summary := stats.Summarize(variants)
	decision, err := engine.DetermineWinner(variants)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"test":     test,
		"summary":  summary,
		"decision": decision,
	})
}

type completeRequest struct {
	WinningVariantID string `json:"winning_variant_id" binding:"required"`
}

func (s *Server) handleCompleteTest(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, variants, ok := s.loadTest(c)
	if !ok {
		return
	}

	valid := false
	for _, v := range variants {
		if v.ID == req.WinningVariantID {
			valid = true
			break
		}
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "winning_variant_id does not belong to this test"})
		return
	}

	decision, err := engine.DetermineWinner(variants)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	err = s.store.CompleteTest(c.Request.Context(), c.Param("id"), req.WinningVariantID, decision.Confidence)
	if !s.checkTransitionErr(c, err, "only active tests can be completed") {
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed", "confidence": decision.Confidence})
}

type autoCompleteRequest struct {
	Apply bool `json:"apply"`
}

func (s *Server) handleAutoComplete(c *gin.Context) {
	var req autoCompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	test, variants, ok := s.loadTest(c)
	if !ok {
		return
	}

	policy := engine.PolicyForTest(test)

	if !req.Apply {
		c.JSON(http.StatusOK, engine.CheckAutoComplete(test, variants, policy))
		return
	}

	result, err := engine.AutoCompleteTest(c.Request.Context(), s.store, test, variants, policy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleInsights(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userID")

	tests, err := s.store.ListTests(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	records := make([]insights.TestRecord, 0, len(tests))
	for _, t := range tests {
		variants, err := s.store.VariantsForTest(ctx, t.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		record, _ := insights.RecordFromTest(t, variants)
		records = append(records, record)
	}

	c.JSON(http.StatusOK, insights.GenerateHistoryInsights(records))
}

// loadTest fetches the test and its variants for the :id route param,
// writing the error response itself when that fails.
func (s *Server) loadTest(c *gin.Context) (*store.Test, []store.Variant, bool) {
	ctx := c.Request.Context()
	id := c.Param("id")

	test, err := s.store.GetTest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "test not found"})
		return nil, nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, nil, false
	}

	variants, err := s.store.VariantsForTest(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, nil, false
	}

	return test, variants, true
}

// checkTransitionErr writes the response for a state-transition error
// and reports whether the caller may proceed.
func (s *Server) checkTransitionErr(c *gin.Context, err error, conflictMsg string) bool {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "test not found"})
		return false
	}
	if errors.Is(err, store.ErrNotActive) {
		c.JSON(http.StatusConflict, gin.H{"error": conflictMsg})
		return false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return false
	}
	return true
}
