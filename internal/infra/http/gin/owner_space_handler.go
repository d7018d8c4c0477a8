package ginserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"github.com/slogsolutions/WebBuyer/internal/app/dto"
	catalogsvc "github.com/slogsolutions/WebBuyer/internal/app/services/catalog"
	"github.com/slogsolutions/WebBuyer/internal/domain/media"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
	"github.com/slogsolutions/WebBuyer/internal/infra/storage/s3"
)

const maxSpacePhotoSizeBytes int64 = 10 * 1024 * 1024

// OwnerSpaceHandler covers the owner-side catalog commands. Every
// route requires the owner role; ownership of the target space is
// checked again in the service.
type OwnerSpaceHandler struct {
	Service  *catalogsvc.Service
	Resolver media.Resolver
	Logger   *slog.Logger
}

type spaceRequest struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Address         spaceAddress `json:"address"`
	HourlyRate      float64      `json:"hourly_rate"`
	DiscountPercent float64      `json:"discount_percent"`
	Features        []string     `json:"features"`
	Covered         bool         `json:"covered"`
	EVCharging      bool         `json:"ev_charging"`
}

type spaceAddress struct {
	Line1   string  `json:"line1"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (h OwnerSpaceHandler) List(c *gin.Context) {
	principal, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}
	limit := parseIntWithDefault(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"))
	result, err := h.Service.ListByOwner(c.Request.Context(), space.OwnerID(principal.ID), limit, offset)
	if err != nil {
		h.respondOwnerError(c, err)
		return
	}
	items := make([]dto.SpaceDetail, 0, len(result.Items))
	for _, sp := range result.Items {
		items = append(items, dto.MapSpaceDetail(sp, h.Resolver))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": result.Total})
}

func (h OwnerSpaceHandler) Create(c *gin.Context) {
	principal, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}
	var req spaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sp, err := h.Service.Create(c.Request.Context(), catalogsvc.CreateParams{
		Owner:           space.OwnerID(principal.ID),
		Title:           req.Title,
		Description:     req.Description,
		Address:         mapAddress(req.Address),
		HourlyRate:      req.HourlyRate,
		DiscountPercent: req.DiscountPercent,
		Features:        req.Features,
		Covered:         req.Covered,
		EVCharging:      req.EVCharging,
	})
	if err != nil {
		h.respondOwnerError(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/spaces/%s", sp.ID))
	c.JSON(http.StatusCreated, dto.MapSpaceDetail(sp, h.Resolver))
}

func (h OwnerSpaceHandler) Update(c *gin.Context) {
	principal, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}
	var req spaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sp, err := h.Service.Update(c.Request.Context(), catalogsvc.UpdateParams{
		Owner:           space.OwnerID(principal.ID),
		SpaceID:         space.SpaceID(c.Param("id")),
		Title:           req.Title,
		Description:     req.Description,
		HourlyRate:      req.HourlyRate,
		DiscountPercent: req.DiscountPercent,
		Features:        req.Features,
		Covered:         req.Covered,
		EVCharging:      req.EVCharging,
	})
	if err != nil {
		h.respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapSpaceDetail(sp, h.Resolver))
}

func (h OwnerSpaceHandler) Activate(c *gin.Context) {
	principal, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}
	sp, err := h.Service.Activate(c.Request.Context(), space.OwnerID(principal.ID), space.SpaceID(c.Param("id")))
	if err != nil {
		h.respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapSpaceDetail(sp, h.Resolver))
}

func (h OwnerSpaceHandler) Suspend(c *gin.Context) {
	principal, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}
	sp, err := h.Service.Suspend(c.Request.Context(), space.OwnerID(principal.ID), space.SpaceID(c.Param("id")))
	if err != nil {
		h.respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapSpaceDetail(sp, h.Resolver))
}

func (h OwnerSpaceHandler) UploadPhoto(c *gin.Context) {
	principal, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}

	spaceID := strings.TrimSpace(c.Param("id"))
	if spaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "space id is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
		return
	}
	if fileHeader.Size > maxSpacePhotoSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file too large (max %d MB)", maxSpacePhotoSizeBytes/1024/1024)})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSpacePhotoSizeBytes+1024))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read file"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
		return
	}
	if int64(len(data)) > maxSpacePhotoSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file too large (max %d MB)", maxSpacePhotoSizeBytes/1024/1024)})
		return
	}

	contentType := http.DetectContentType(data)
	if !s3.AllowedImageType(contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported content type: %s", contentType)})
		return
	}

	ref, sp, err := h.Service.UploadPhoto(c.Request.Context(), catalogsvc.UploadPhotoParams{
		Owner:       space.OwnerID(principal.ID),
		SpaceID:     space.SpaceID(spaceID),
		ObjectKey:   s3.PhotoKey(spaceID, fileHeader.Filename, contentType),
		ContentType: contentType,
		Reader:      bytes.NewReader(data),
	})
	if err != nil {
		h.respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": ref.Value, "space": dto.MapSpaceDetail(sp, h.Resolver)})
}

func (h OwnerSpaceHandler) respondOwnerError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalogsvc.ErrNotOwner), errors.Is(err, space.ErrNotFound):
		// Not-owned reads as not-found so owners cannot probe each
		// other's inventory.
		status = http.StatusNotFound
	case isSpaceValidationError(err), errors.Is(err, catalogsvc.ErrPhotoRequired):
		status = http.StatusBadRequest
	case errors.Is(err, space.ErrInvalidState):
		status = http.StatusConflict
	}
	if h.Logger != nil && status == http.StatusInternalServerError {
		h.Logger.Error("owner space request failed", "error", err, "path", c.FullPath())
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func isSpaceValidationError(err error) bool {
	switch {
	case errors.Is(err, space.ErrIDRequired),
		errors.Is(err, space.ErrOwnerRequired),
		errors.Is(err, space.ErrTitleRequired),
		errors.Is(err, space.ErrHourlyRate),
		errors.Is(err, space.ErrBadCoordinate),
		errors.Is(err, space.ErrAddressRequired),
		errors.Is(err, space.ErrRatingRange):
		return true
	}
	return false
}

func mapAddress(a spaceAddress) space.Address {
	return space.Address{
		Line1:   strings.TrimSpace(a.Line1),
		City:    strings.TrimSpace(a.City),
		Country: strings.TrimSpace(a.Country),
		Lat:     a.Lat,
		Lon:     a.Lon,
	}
}

var _ OwnerSpaceHTTP = OwnerSpaceHandler{}
