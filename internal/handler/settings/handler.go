package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reviewboost/review-api/internal/handler"
	"github.com/reviewboost/review-api/internal/model"
	settingsService "github.com/reviewboost/review-api/internal/service/settings"
)

type Handler struct {
	service settingsService.Servicer
}

func NewHandler(service settingsService.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tenants := r.Group("/tenants/:tenantID")
	{
		tenants.GET("/settings", h.GetSettings)
		tenants.PUT("/settings", h.SaveSettings)
		tenants.PUT("/permission", h.UpdatePermission)
	}
}

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(settings))
}

func (h *Handler) SaveSettings(c *gin.Context) {
	var req model.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	settings, err := h.service.SaveSettings(c.Request.Context(), c.Param("tenantID"), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(settings))
}

func (h *Handler) UpdatePermission(c *gin.Context) {
	var req model.UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	settings, err := h.service.UpdatePermission(c.Request.Context(), c.Param("tenantID"), req.Permission)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"permission": settings.PermissionTier,
		"sms_limit":  settings.ResolveSMSLimit(),
	}))
}
