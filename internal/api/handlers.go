package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"strava-challenge/internal/cache"
	"strava-challenge/internal/challenge"
	"strava-challenge/internal/logger"
)

// StatsErrorMessage is the only failure detail clients ever see
const StatsErrorMessage = "Failed to fetch challenge stats"

// StatsProvider builds challenge stats and clears cached listings
type StatsProvider interface {
	Stats(ctx context.Context, now time.Time) (*challenge.Stats, error)
	ClearActivities(ctx context.Context, now time.Time) []string
}

// CacheInspector reports cache health and contents
type CacheInspector interface {
	Stats(ctx context.Context) cache.Stats
	Ping(ctx context.Context) error
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the challenge endpoints
type Handler struct {
	stats StatsProvider
	cache CacheInspector
	log   logger.Logger
	now   func() time.Time
}

// NewHandler creates a handler. cache may be nil.
func NewHandler(stats StatsProvider, c CacheInspector, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{stats: stats, cache: c, log: log, now: time.Now}
}

// GetStats handles GET /api/strava/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context(), h.now())
	if err != nil {
		h.log.Error("Error fetching challenge stats",
			logger.String("request_id", c.GetString(requestIDKey)),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: StatsErrorMessage})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, stats)
}

// GetCacheStats handles GET /api/cache/stats
func (h *Handler) GetCacheStats(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, cache.Stats{})
		return
	}
	c.JSON(http.StatusOK, h.cache.Stats(c.Request.Context()))
}

// ClearActivities handles DELETE /api/cache/activities
func (h *Handler) ClearActivities(c *gin.Context) {
	keys := h.stats.ClearActivities(c.Request.Context(), h.now())
	if keys == nil {
		keys = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"cleared": keys})
}

// Health handles GET /healthz. A cache outage degrades but never fails
// the check.
func (h *Handler) Health(c *gin.Context) {
	cacheStatus := "ok"
	if h.cache == nil {
		cacheStatus = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			cacheStatus = "degraded"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "cache": cacheStatus})
}
