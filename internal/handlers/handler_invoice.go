package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/dto"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// invoiceHandler handles HTTP requests related to invoices and their review claims.
type invoiceHandler struct {
	invoiceService portssvc.InvoiceSvcFacade
}

func newInvoiceHandler(is portssvc.InvoiceSvcFacade) *invoiceHandler {
	return &invoiceHandler{invoiceService: is}
}

// RegisterInvoiceRoutes registers routes related to invoices.
func RegisterInvoiceRoutes(rg *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade) {
	h := newInvoiceHandler(invoiceService)

	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.submitInvoice)
		invoices.GET("", h.listInvoices)
		invoices.GET("/:invoiceID", h.getInvoice)
		invoices.POST("/:invoiceID/resubmit", h.resubmitInvoice)

		invoices.POST("/:invoiceID/claim", h.claimInvoice)
		invoices.POST("/:invoiceID/ping", h.pingReview)
		invoices.POST("/:invoiceID/release", h.releaseInvoice)
		invoices.POST("/:invoiceID/decision", h.decideInvoice)

		invoices.POST("/:invoiceID/reopen", h.reopenInvoice)
		invoices.POST("/:invoiceID/payout", h.advancePayout)
	}
}

// submitInvoice godoc
// @Summary Submit an invoice
// @Description Records an uploaded invoice as pending review
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   invoice body dto.SubmitInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input or amount"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /invoices [post]
func (h *invoiceHandler) submitInvoice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.SubmitInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	inv, err := h.invoiceService.SubmitInvoice(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		respondError(c, err, "submit invoice")
		return
	}
	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(inv))
}

// resubmitInvoice godoc
// @Summary Resubmit a rejected invoice
// @Description Creates a fresh pending invoice that replaces a rejected one
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   invoiceID path string true "Rejected invoice ID"
// @Param   invoice body dto.SubmitInvoiceRequest true "Corrected invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Invoice is not rejected"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/resubmit [post]
func (h *invoiceHandler) resubmitInvoice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.SubmitInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	inv, err := h.invoiceService.ResubmitInvoice(c.Request.Context(), actor, c.Param("invoiceID"), req.ToInput())
	if err != nil {
		respondError(c, err, "resubmit invoice")
		return
	}
	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(inv))
}

// getInvoice godoc
// @Summary Get an invoice
// @Description Retrieves an invoice with its current review claim
// @Tags invoices
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoiceID} [get]
func (h *invoiceHandler) getInvoice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), actor, c.Param("invoiceID"))
	if err != nil {
		respondError(c, err, "retrieve invoice")
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}

// listInvoices godoc
// @Summary List invoices
// @Description Lists invoices by status, submitter or reviewer. Submitters only see their own.
// @Tags invoices
// @Produce  json
// @Param   status query string false "Status filter"
// @Param   submitterId query string false "Submitter filter"
// @Param   reviewerId query string false "Reviewer filter"
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /invoices [get]
func (h *invoiceHandler) listInvoices(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var params dto.ListInvoicesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}

	invoices, err := h.invoiceService.ListInvoices(c.Request.Context(), actor, params.ToFilter())
	if err != nil {
		respondError(c, err, "list invoices")
		return
	}
	c.JSON(http.StatusOK, dto.ToListInvoicesResponse(invoices))
}

// claimInvoice godoc
// @Summary Claim an invoice for review
// @Description Takes the single review lease on a pending or re_review invoice
// @Tags review
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already claimed by someone else"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/claim [post]
func (h *invoiceHandler) claimInvoice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.ClaimInvoice(c.Request.Context(), actor, c.Param("invoiceID"))
	if err != nil {
		respondError(c, err, "claim invoice")
		return
	}
	middleware.GetLoggerFromContext(c).Info("Invoice claimed", slog.String("invoice_id", inv.InvoiceID))
	setPingInterval(c)
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}

// pingReview godoc
// @Summary Refresh a review claim
// @Description Keeps the caller's review lease alive; clients call it every 30 seconds
// @Tags review
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} dto.ErrorResponse "The claim was lost"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/ping [post]
func (h *invoiceHandler) pingReview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.PingReview(c.Request.Context(), actor, c.Param("invoiceID"))
	if err != nil {
		respondError(c, err, "refresh review claim")
		return
	}
	setPingInterval(c)
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}

// setPingInterval tells the client how often to refresh its claim, in seconds.
func setPingInterval(c *gin.Context) {
	c.Header("X-Review-Ping-Interval", strconv.Itoa(int(domain.ReviewPingInterval/time.Second)))
}

// releaseInvoice godoc
// @Summary Release a review claim
// @Description Returns the invoice to pending. Releasing an unclaimed invoice returns its current state.
// @Tags review
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} dto.ErrorResponse "Claimed by another reviewer"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/release [post]
func (h *invoiceHandler) releaseInvoice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.ReleaseInvoice(c.Request.Context(), actor, c.Param("invoiceID"))
	if err != nil {
		respondError(c, err, "release invoice")
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}

// decideInvoice godoc
// @Summary Decide a claimed invoice
// @Description Accepts, rejects or sends back an invoice the caller holds; acceptance deducts the amount
// @Tags review
// @Accept  json
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Param   decision body dto.DecideInvoiceRequest true "Decision"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "The caller does not hold the claim"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/decision [post]
func (h *invoiceHandler) decideInvoice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.DecideInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	inv, err := h.invoiceService.DecideInvoice(c.Request.Context(), actor, c.Param("invoiceID"), req.Outcome, req.ToPayload())
	if err != nil {
		respondError(c, err, "record decision")
		return
	}
	middleware.GetLoggerFromContext(c).Info("Invoice decided",
		slog.String("invoice_id", inv.InvoiceID),
		slog.String("status", string(inv.Status)))
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}

// reopenInvoice godoc
// @Summary Reopen a decided invoice
// @Description Administrators send an accepted or rejected invoice back to re_review; acceptance is refunded
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Param   reopen body dto.ReopenInvoiceRequest true "Reason"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoiceID}/reopen [post]
func (h *invoiceHandler) reopenInvoice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.ReopenInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	inv, err := h.invoiceService.ReopenInvoice(c.Request.Context(), actor, c.Param("invoiceID"), req.Reason)
	if err != nil {
		respondError(c, err, "reopen invoice")
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}

// advancePayout godoc
// @Summary Advance the payout state
// @Description Moves an accepted invoice one step along money_transferred, transferred, settled
// @Tags invoices
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoiceID}/payout [post]
func (h *invoiceHandler) advancePayout(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.AdvancePayout(c.Request.Context(), actor, c.Param("invoiceID"))
	if err != nil {
		respondError(c, err, "advance payout")
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}
