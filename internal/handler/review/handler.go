package review

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reviewboost/review-api/internal/handler"
	"github.com/reviewboost/review-api/internal/model"
	reviewService "github.com/reviewboost/review-api/internal/service/review"
)

type Handler struct {
	service reviewService.Servicer
}

func NewHandler(service reviewService.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reviews := r.Group("/review")
	{
		reviews.GET("/:code", h.GetForm)
		reviews.POST("/:code", h.Submit)
	}
}

func (h *Handler) GetForm(c *gin.Context) {
	form, err := h.service.GetForm(c.Request.Context(), c.Param("code"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(form))
}

func (h *Handler) Submit(c *gin.Context) {
	var sub model.ReviewSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), c.Param("code"), &sub)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}
