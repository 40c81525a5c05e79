package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/ptc-frontdesk/internal/archive"
	"github.com/garyellow/ptc-frontdesk/internal/r2client"
	"github.com/garyellow/ptc-frontdesk/internal/storage"
)

// Recent interactions shown by /admin/stats.
const (
	defaultAdminLimit = 20
	maxAdminLimit     = 200
)

type statsResponse struct {
	Counters     storage.Counters      `json:"counters"`
	Total        int64                 `json:"total"`
	Interactions []storage.Interaction `json:"interactions"`
}

// handleAdminStats shows the counters and the newest interactions.
func (a *Application) handleAdminStats(c *gin.Context) {
	limit := defaultAdminLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxAdminLimit)
	}

	ctx := c.Request.Context()
	counters, err := a.recorder.Counters(ctx)
	if err != nil {
		a.internalError(c, err, "admin", "Failed to read counters")
		return
	}
	recent, err := a.recorder.Interactions(ctx, limit)
	if err != nil {
		a.internalError(c, err, "admin", "Failed to read interactions")
		return
	}
	if recent == nil {
		recent = []storage.Interaction{}
	}

	c.JSON(http.StatusOK, statsResponse{
		Counters:     counters,
		Total:        counters.Total(),
		Interactions: recent,
	})
}

// handleStatsDownload returns the counters as a JSON attachment.
func (a *Application) handleStatsDownload(c *gin.Context) {
	counters, err := a.recorder.Counters(c.Request.Context())
	if err != nil {
		a.internalError(c, err, "admin", "Failed to read counters")
		return
	}
	data, err := json.MarshalIndent(counters, "", "  ")
	if err != nil {
		a.internalError(c, err, "admin", "Failed to encode counters")
		return
	}

	a.logger.WithModule("admin").WithField("file", storage.StatsFileName).InfoContext(c.Request.Context(), "Admin download")
	attachment(c, storage.StatsFileName)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// handleInteractionsDownload returns the raw interaction log.
func (a *Application) handleInteractionsDownload(c *gin.Context) {
	var buf bytes.Buffer
	if err := a.recorder.ExportLog(c.Request.Context(), &buf); err != nil {
		a.internalError(c, err, "admin", "Failed to export interaction log")
		return
	}

	a.logger.WithModule("admin").
		WithField("file", storage.InteractionsFileName).
		WithField("bytes", buf.Len()).
		InfoContext(c.Request.Context(), "Admin download")
	attachment(c, storage.InteractionsFileName)
	c.Data(http.StatusOK, "application/x-ndjson", buf.Bytes())
}

// handleArchiveStatus reports whether a day (YYYYMMDD) was archived.
func (a *Application) handleArchiveStatus(c *gin.Context) {
	day := c.Param("day")
	ok, err := archive.Claimed(c.Request.Context(), a.archives, day)
	switch {
	case errors.Is(err, archive.ErrInvalidKey):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "day must be YYYYMMDD"})
	case err != nil:
		a.archiveError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"day": day, "archived": ok})
	}
}

// handleArchiveDownload returns an archived log decompressed.
func (a *Application) handleArchiveDownload(c *gin.Context) {
	key := c.Query("key")

	var buf bytes.Buffer
	err := archive.Fetch(c.Request.Context(), a.archives, key, &buf)
	switch {
	case errors.Is(err, archive.ErrInvalidKey):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid archive key"})
		return
	case errors.Is(err, r2client.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "archive not found"})
		return
	case err != nil:
		a.archiveError(c, err)
		return
	}

	name := strings.TrimSuffix(path.Base(key), ".zst")
	a.logger.WithModule("admin").WithField("key", key).InfoContext(c.Request.Context(), "Admin archive download")
	attachment(c, name)
	c.Data(http.StatusOK, "application/x-ndjson", buf.Bytes())
}

func (a *Application) archiveError(c *gin.Context, err error) {
	a.logger.WithError(err).WithModule("admin").ErrorContext(c.Request.Context(), "Archive request failed")
	a.metrics.RecordHTTPError("upstream", "archive")
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "archive storage unavailable"})
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}
