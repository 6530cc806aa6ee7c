package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/dto"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// meAccount lets clients address their own balance without knowing their ID.
const meAccount = "me"

type balanceHandler struct {
	balanceService portssvc.BalanceSvcFacade
}

// RegisterBalanceRoutes registers balance and ledger routes. Verification and corrections are admin-only.
func RegisterBalanceRoutes(rg *gin.RouterGroup, balanceService portssvc.BalanceSvcFacade) {
	h := &balanceHandler{balanceService: balanceService}

	balances := rg.Group("/balances/:accountID")
	{
		balances.GET("", h.getBalance)
		balances.GET("/entries", h.listEntries)

		admin := balances.Group("", middleware.RequireRole(domain.RoleAdmin))
		admin.GET("/verify", h.verifyChain)
		admin.POST("/adjustments", h.adjustBalance)
		admin.POST("/rebuild", h.rebuildProjection)
	}
}

func accountParam(c *gin.Context, actor domain.Actor) string {
	id := c.Param("accountID")
	if id == meAccount {
		return actor.ID
	}
	return id
}

// getBalance godoc
// @Summary Get a balance
// @Description Returns the cached balance of an account; use "me" for the caller's own
// @Tags balances
// @Produce  json
// @Param   accountID path string true "Account (user) ID or me"
// @Success 200 {object} dto.BalanceResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /balances/{accountID} [get]
func (h *balanceHandler) getBalance(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	balance, err := h.balanceService.GetBalance(c.Request.Context(), actor, accountParam(c, actor))
	if err != nil {
		respondError(c, err, "retrieve balance")
		return
	}
	c.JSON(http.StatusOK, dto.ToBalanceResponse(balance))
}

// listEntries godoc
// @Summary List ledger entries
// @Description Pages through an account's ledger, newest first
// @Tags balances
// @Produce  json
// @Param   accountID path string true "Account (user) ID or me"
// @Param   limit query int false "Limit number of results" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /balances/{accountID}/entries [get]
func (h *balanceHandler) listEntries(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}

	entries, next, err := h.balanceService.ListEntries(c.Request.Context(), actor, accountParam(c, actor), params.Limit, params.NextToken)
	if err != nil {
		respondError(c, err, "list ledger entries")
		return
	}
	c.JSON(http.StatusOK, dto.ToListEntriesResponse(entries, next))
}

// verifyChain godoc
// @Summary Verify a ledger chain
// @Description Replays the ledger and compares it with the cached balance. Never writes.
// @Tags balances
// @Produce  json
// @Param   accountID path string true "Account (user) ID"
// @Success 200 {object} dto.ChainReportResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /balances/{accountID}/verify [get]
func (h *balanceHandler) verifyChain(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	report, err := h.balanceService.VerifyChain(c.Request.Context(), accountParam(c, actor))
	if err != nil {
		respondError(c, err, "verify ledger")
		return
	}
	c.JSON(http.StatusOK, dto.ToChainReportResponse(report))
}

// adjustBalance godoc
// @Summary Adjust a balance
// @Description Posts a signed manual adjustment to the ledger
// @Tags balances
// @Accept  json
// @Produce  json
// @Param   accountID path string true "Account (user) ID"
// @Param   adjustment body dto.AdjustBalanceRequest true "Adjustment"
// @Success 201 {object} dto.LedgerEntryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /balances/{accountID}/adjustments [post]
func (h *balanceHandler) adjustBalance(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	entry, err := h.balanceService.AdjustBalance(c.Request.Context(), actor, accountParam(c, actor), req.Amount, req.Notes)
	if err != nil {
		respondError(c, err, "adjust balance")
		return
	}
	c.JSON(http.StatusCreated, dto.ToLedgerEntryResponse(entry))
}

// rebuildProjection godoc
// @Summary Rebuild a cached balance
// @Description Rewrites the cached balance from a ledger replay; returns the state found before the rewrite
// @Tags balances
// @Produce  json
// @Param   accountID path string true "Account (user) ID"
// @Success 200 {object} dto.ChainReportResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse "The ledger chain itself is broken"
// @Security BearerAuth
// @Router /balances/{accountID}/rebuild [post]
func (h *balanceHandler) rebuildProjection(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	accountID := accountParam(c, actor)
	report, err := h.balanceService.RebuildProjection(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "rebuild balance")
		return
	}
	middleware.GetLoggerFromContext(c).Info("Balance projection rebuilt by admin",
		slog.String("account_id", accountID),
		slog.String("admin_id", actor.ID))
	c.JSON(http.StatusOK, dto.ToChainReportResponse(report))
}
