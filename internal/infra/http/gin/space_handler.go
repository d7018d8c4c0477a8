package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/slogsolutions/WebBuyer/internal/app/dto"
	catalogsvc "github.com/slogsolutions/WebBuyer/internal/app/services/catalog"
	"github.com/slogsolutions/WebBuyer/internal/app/summary"
	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
)

// SpaceHandler serves the public catalog and the one-shot summary.
type SpaceHandler struct {
	CatalogService *catalogsvc.Service
	SummaryService *summary.Service
	Resolver       media.Resolver
	Logger         *slog.Logger
}

// Catalog responds with a filtered page of active spaces.
func (h SpaceHandler) Catalog(c *gin.Context) {
	if h.CatalogService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}
	params := space.SearchParams{
		City:       c.Query("city"),
		Query:      c.Query("q"),
		MaxRate:    parseFloat(c.Query("max_rate")),
		Covered:    parseOptionalBool(c.Query("covered")),
		EVCharging: parseOptionalBool(c.Query("ev")),
		NearLat:    parseFloat(c.Query("near_lat")),
		NearLon:    parseFloat(c.Query("near_lon")),
		RadiusKm:   parseFloat(c.Query("radius_km")),
		Sort:       space.CatalogSort(c.Query("sort")),
		Limit:      parseIntWithDefault(c.Query("limit"), 24),
		Offset:     parseInt(c.Query("offset")),
		OnlyActive: true,
	}
	result, err := h.CatalogService.Search(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("catalog search failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog search failed"})
		return
	}
	c.JSON(http.StatusOK, dto.MapCatalog(result, params, h.Resolver))
}

// Get returns one space. Drafts stay hidden from everyone but their
// owner.
func (h SpaceHandler) Get(c *gin.Context) {
	if h.CatalogService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "space id is required"})
		return
	}
	sp, err := h.CatalogService.Get(c.Request.Context(), space.SpaceID(id))
	if err != nil {
		h.respondSpaceError(c, err)
		return
	}
	if sp.State == space.SpaceDraft && !callerOwns(c, sp) {
		c.JSON(http.StatusNotFound, gin.H{"error": "space not found"})
		return
	}
	c.JSON(http.StatusOK, dto.MapSpaceDetail(sp, h.Resolver))
}

/// Summary composes the full summary card for one space: live ratings,
// price breakdown for the optional window, resolved photo URLs.
func (h SpaceHandler) Summary(c *gin.Context) {
	if h.Summary == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary unavailable"})
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "space id is required"})
		return
	}
	win := windowFromQuery(c.Query("from"), c.Query("to"))
	snap, err := h.Summary.Compose(c.Request.Context(), space.SpaceID(id), win)
	if err != nil {
		h.respondSpaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapSummary(snap))
}

func (h SpaceHandler) respondSpaceError(c *gin.Context, err error) {
	if errors.Is(err, space.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "space not found"})
		return
	}
	if h.Logger != nil {
		h.Logger.Error("space request failed", "error", err, "path", c.FullPath())
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func callerOwns(c *gin.Context, sp *space.Space) bool {
	principal, ok := currentPrincipal(c)
	return ok && principal.ID == string(sp.Owner)
}

var _ SpaceHTTP = SpaceHandler{}

// windowFromQuery builds the prospective window from query bounds.
// Unparseable or missing bounds stay unset; pricing treats a partial
// window as no duration.
func windowFromQuery(fromRaw, toRaw string) timewindow.Window {
	var w timewindow.Window
	if t, ok := parseFlexibleTime(fromRaw); ok {
		w.Start = &t
	}
	if t, ok := parseFlexibleTime(toRaw); ok {
		w.End = &t
	}
	return w
}

func parseFlexibleTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func parseInt(raw string) int {
	value, _ := strconv.Atoi(strings.TrimSpace(raw))
	if value < 0 {
		return 0
	}
	return value
}

func parseIntWithDefault(raw string, fallback int) int {
	value := parseInt(raw)
	if value == 0 {
		return fallback
	}
	return value
}

func parseFloat(raw string) float64 {
	value, _ := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return value
}

func parseOptionalBool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		v := true
		return &v
	case "0", "f", "false", "no", "n", "off":
		v := false
		return &v
	default:
		return nil
	}
}
