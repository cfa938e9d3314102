package reminder

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reviewboost/review-api/internal/handler"
	"github.com/reviewboost/review-api/internal/service/quota"
	reminderService "github.com/reviewboost/review-api/internal/service/reminder"
	"github.com/reviewboost/review-api/pkg/logger"
	"github.com/reviewboost/review-api/pkg/scheduler"
)

// manualSweepTimeout bounds a run-now sweep started from the API; the
// background sweep has no such bound.
const manualSweepTimeout = 10 * time.Minute

type Handler struct {
	service   *reminderService.Service
	quota     *quota.Service
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

func NewHandler(service *reminderService.Service, quotaSvc *quota.Service, sched *scheduler.Scheduler, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{service: service, quota: quotaSvc, scheduler: sched, logger: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reminders := r.Group("/reminders")
	{
		reminders.POST("/run", h.RunNow)
		reminders.GET("/status", h.Status)
	}

	tenants := r.Group("/tenants/:tenantID")
	{
		tenants.GET("/reminders/test", h.TestTenant)
		tenants.GET("/sms-limit", h.SMSLimit)
		tenants.POST("/send-all", h.SendToAll)
		tenants.POST("/clients/:id/send", h.SendToClient)
	}
}

// RunNow executes a full sweep on the request and returns its summary, so the
// operator sees the sent count. A sweep already in flight yields a conflict,
// never a second sweep.
func (h *Handler) RunNow(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), manualSweepTimeout)
	defer cancel()

	summary, err := h.service.RunSweep(ctx)
	if err != nil {
		if errors.Is(err, reminderService.ErrSweepInProgress) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		h.logger.Error(err, "manual reminder sweep failed")
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) Status(c *gin.Context) {
	resp := gin.H{"sweep_in_progress": h.service.Sweeping()}
	if h.scheduler != nil {
		resp["scheduler"] = h.scheduler.Status()
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) TestTenant(c *gin.Context) {
	report, err := h.service.TestTenant(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func (h *Handler) SMSLimit(c *gin.Context) {
	status, err := h.quota.Status(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(status))
}

func (h *Handler) SendToClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid client ID"))
		return
	}

	result, err := h.service.SendToClient(c.Request.Context(), c.Param("tenantID"), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) SendToAll(c *gin.Context) {
	result, err := h.service.SendToAllClients(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
