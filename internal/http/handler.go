package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inspection-service/internal/capture"
	"inspection-service/internal/domain/inspection"
	"inspection-service/internal/export"
	"inspection-service/internal/service"
)

type Handler struct {
	inspectionService *service.InspectionService
	hub               *EventHub
	log               zerolog.Logger
}

func NewHandler(
	inspectionService *service.InspectionService,
	hub *EventHub,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		inspectionService: inspectionService,
		hub:               hub,
		log:               log,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)

	api := r.Group("/api/v1")
	{
		api.GET("/sites", h.listSites)
		api.GET("/categories", h.listCategories)

		api.POST("/sessions", h.createSession)
		api.GET("/sessions/:id", h.getSession)
		api.DELETE("/sessions/:id", h.closeSession)
		api.PUT("/sessions/:id/site", h.selectSite)
		api.GET("/sessions/:id/events", h.subscribe)

		api.GET("/sessions/:id/sites/:site/photos", h.listPhotos)
		api.GET("/sessions/:id/sites/:site/photos/:category", h.getPhoto)
		api.PUT("/sessions/:id/sites/:site/photos/:category", h.uploadPhoto)
		api.POST("/sessions/:id/sites/:site/photos/:category/camera", h.capturePhoto)
		api.POST("/sessions/:id/sites/:site/photos/:category/recognize", h.recognizePlate)

		api.GET("/sessions/:id/sites/:site/plates", h.listPlates)
		api.PUT("/sessions/:id/sites/:site/plates/:category", h.setPlate)

		api.GET("/sessions/:id/report", h.getReport)
		api.PATCH("/sessions/:id/report", h.editReport)
		api.POST("/sessions/:id/report/checks/:index/toggle", h.toggleCheck)

		api.GET("/sessions/:id/export/:format", h.exportReport)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listSites(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.inspectionService.Sites()))
}

func (h *Handler) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.inspectionService.Categories()))
}

func (h *Handler) createSession(c *gin.Context) {
	sess, err := h.inspectionService.CreateSession(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(sess))
}

func (h *Handler) getSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	sess, err := h.inspectionService.GetSession(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(sess))
}

func (h *Handler) closeSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.inspectionService.CloseSession(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type selectSiteRequest struct {
	Site string `json:"site" binding:"required"`
}

func (h *Handler) selectSite(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req selectSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	sess, err := h.inspectionService.SelectSite(c.Request.Context(), id, inspection.SiteID(strings.TrimSpace(req.Site)))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(sess))
}

func (h *Handler) subscribe(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if _, err := h.inspectionService.GetSession(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, id); err != nil {
		// The upgrader has already written the failure response.
		h.log.Warn().Err(err).Str("session_id", id.String()).Msg("failed to upgrade to websocket")
	}
}

func (h *Handler) listPhotos(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	photos, err := h.inspectionService.Photos(c.Request.Context(), id, siteParam(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(photos))
}

// getPhoto streams the stored image. With ?format=json the metadata and a
// data URI are returned instead.
func (h *Handler) getPhoto(c *gin.Context) {
	id, category, ok := h.photoTarget(c)
	if !ok {
		return
	}
	img, err := h.inspectionService.GetPhoto(c.Request.Context(), id, siteParam(c), category)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, successResponse(gin.H{
			"image":    img,
			"data_uri": img.DataURI(),
		}))
		return
	}
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

type dataURIRequest struct {
	DataURI string `json:"data_uri" binding:"required"`
}

// uploadPhoto accepts either a multipart "file" part or a JSON body with a
// base64 data URI.
func (h *Handler) uploadPhoto(c *gin.Context) {
	id, category, ok := h.photoTarget(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	site := siteParam(c)

	var (
		img *inspection.Image
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, ferr := c.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, errorResponse("file is required"))
			return
		}
		f, ferr := fh.Open()
		if ferr != nil {
			c.JSON(http.StatusBadRequest, errorResponse(ferr.Error()))
			return
		}
		defer f.Close()
		img, err = h.inspectionService.UploadPhoto(ctx, id, site, category, f)
	} else {
		var req dataURIRequest
		if berr := c.ShouldBindJSON(&req); berr != nil {
			c.JSON(http.StatusBadRequest, errorResponse(berr.Error()))
			return
		}
		img, err = h.inspectionService.UploadDataURI(ctx, id, site, category, req.DataURI)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(img))
}

type captureRequest struct {
	Facing string `json:"facing"`
}

func (h *Handler) capturePhoto(c *gin.Context) {
	id, category, ok := h.photoTarget(c)
	if !ok {
		return
	}
	var req captureRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	img, err := h.inspectionService.CapturePhoto(c.Request.Context(), id, siteParam(c), category, inspection.ParseFacing(req.Facing))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(img))
}

func (h *Handler) recognizePlate(c *gin.Context) {
	id, category, ok := h.photoTarget(c)
	if !ok {
		return
	}
	res, err := h.inspectionService.RecognizePlate(c.Request.Context(), id, siteParam(c), category)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(res))
}

func (h *Handler) listPlates(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	plates, err := h.inspectionService.PlateNumbers(c.Request.Context(), id, siteParam(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(plates))
}

type setPlateRequest struct {
	Plate string `json:"plate"`
}

func (h *Handler) setPlate(c *gin.Context) {
	id, category, ok := h.photoTarget(c)
	if !ok {
		return
	}
	var req setPlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	sess, err := h.inspectionService.SetPlateNumber(c.Request.Context(), id, siteParam(c), category, strings.TrimSpace(req.Plate))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(sess))
}

func (h *Handler) getReport(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	sess, err := h.inspectionService.GetSession(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{
		"report":          sess.Report,
		"checklist_items": inspection.ChecklistItems,
	}))
}

func (h *Handler) editReport(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var fields map[string]string
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	sess, err := h.inspectionService.EditReport(c.Request.Context(), id, fields)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(sess.Report))
}

func (h *Handler) toggleCheck(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("index must be a number"))
		return
	}
	sess, err := h.inspectionService.ToggleCheck(c.Request.Context(), id, index)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(sess.Report))
}

func (h *Handler) exportReport(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(strings.ToLower(c.Param("format")))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	artifact, err := h.inspectionService.Export(c.Request.Context(), id, format)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}

func (h *Handler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid session id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) photoTarget(c *gin.Context) (uuid.UUID, inspection.Category, bool) {
	id, ok := h.sessionID(c)
	if !ok {
		return uuid.Nil, "", false
	}
	category, err := inspection.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return uuid.Nil, "", false
	}
	return id, category, true
}

func siteParam(c *gin.Context) inspection.SiteID {
	return inspection.SiteID(strings.TrimSpace(c.Param("site")))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNoPlateDetected):
		c.JSON(http.StatusUnprocessableEntity, errorResponse("No license plate detected in the image"))
	case errors.Is(err, service.ErrRecognitionFailed):
		detail := strings.TrimPrefix(err.Error(), service.ErrRecognitionFailed.Error()+": ")
		c.JSON(http.StatusBadGateway, errorResponse("Error processing image: "+detail))
	case errors.Is(err, capture.ErrCameraDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, capture.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse(err.Error()))
	case errors.Is(err, service.ErrCaptureFailed):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("route", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
