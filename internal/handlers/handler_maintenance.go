package handlers

import (
	"net/http"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

type maintenanceHandler struct {
	sweeper portssvc.SweeperSvcFacade
	clock   func() time.Time
}

// RegisterMaintenanceRoutes exposes on-demand sweeper runs to administrators.
func RegisterMaintenanceRoutes(rg *gin.RouterGroup, sweeper portssvc.SweeperSvcFacade) {
	h := &maintenanceHandler{sweeper: sweeper, clock: time.Now}

	maintenance := rg.Group("/maintenance", middleware.RequireRole(domain.RoleAdmin))
	{
		maintenance.POST("/reclaim-claims", h.reclaimClaims)
		maintenance.POST("/hygiene", h.hygiene)
	}
}

// reclaimClaims godoc
// @Summary Reclaim stuck review claims
// @Description Resets in-review invoices whose lease has not been pinged within the stale threshold
// @Tags maintenance
// @Produce  json
// @Success 200 {object} domain.ClaimSweepReport
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /maintenance/reclaim-claims [post]
func (h *maintenanceHandler) reclaimClaims(c *gin.Context) {
	report, err := h.sweeper.ReclaimStuckClaims(c.Request.Context(), h.clock())
	if err != nil {
		respondError(c, err, "reclaim stuck claims")
		return
	}
	c.JSON(http.StatusOK, report)
}

// hygiene godoc
// @Summary Run hygiene tasks
// @Description Runs the orphan audit, pruning and ledger audit; task errors are reported per task
// @Tags maintenance
// @Produce  json
// @Success 200 {object} domain.HygieneReport
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /maintenance/hygiene [post]
func (h *maintenanceHandler) hygiene(c *gin.Context) {
	c.JSON(http.StatusOK, h.sweeper.RunHygiene(c.Request.Context(), h.clock()))
}
