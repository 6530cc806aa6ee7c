package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/dto"
	"github.com/gin-gonic/gin"
)

type budgetRequestHandler struct {
	service portssvc.BudgetRequestSvcFacade
}

// RegisterBudgetRequestRoutes registers routes for advance budget requests.
func RegisterBudgetRequestRoutes(rg *gin.RouterGroup, service portssvc.BudgetRequestSvcFacade) {
	h := &budgetRequestHandler{service: service}

	requests := rg.Group("/budget-requests")
	{
		requests.POST("", h.create)
		requests.GET("/pending", h.listPending)
		requests.GET("/mine", h.listMine)
		requests.GET("/:requestID", h.get)
		requests.POST("/:requestID/review", h.review)
	}
}

// create godoc
// @Summary Request a budget advance
// @Description Records a pending request together with a snapshot of the current balance
// @Tags budget-requests
// @Accept  json
// @Produce  json
// @Param   request body dto.CreateBudgetRequestRequest true "Amount and justification"
// @Success 201 {object} dto.BudgetRequestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /budget-requests [post]
func (h *budgetRequestHandler) create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateBudgetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	br, err := h.service.CreateBudgetRequest(c.Request.Context(), actor, req.Amount, req.Justification)
	if err != nil {
		respondError(c, err, "create budget request")
		return
	}
	c.JSON(http.StatusCreated, dto.ToBudgetRequestResponse(br))
}

// listPending godoc
// @Summary List pending budget requests
// @Tags budget-requests
// @Produce  json
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {object} dto.ListBudgetRequestsResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /budget-requests/pending [get]
func (h *budgetRequestHandler) listPending(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var params dto.ListRequestsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}

	requests, err := h.service.ListPendingBudgetRequests(c.Request.Context(), actor, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "list budget requests")
		return
	}
	c.JSON(http.StatusOK, dto.ToListBudgetRequestsResponse(requests))
}

// listMine godoc
// @Summary List my budget requests
// @Tags budget-requests
// @Produce  json
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {object} dto.ListBudgetRequestsResponse
// @Security BearerAuth
// @Router /budget-requests/mine [get]
func (h *budgetRequestHandler) listMine(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var params dto.ListRequestsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}

	requests, err := h.service.ListMyBudgetRequests(c.Request.Context(), actor, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "list budget requests")
		return
	}
	c.JSON(http.StatusOK, dto.ToListBudgetRequestsResponse(requests))
}

// get godoc
// @Summary Get a budget request
// @Tags budget-requests
// @Produce  json
// @Param   requestID path string true "Request ID"
// @Success 200 {object} dto.BudgetRequestResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /budget-requests/{requestID} [get]
func (h *budgetRequestHandler) get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	br, err := h.service.GetBudgetRequest(c.Request.Context(), actor, c.Param("requestID"))
	if err != nil {
		respondError(c, err, "retrieve budget request")
		return
	}
	c.JSON(http.StatusOK, dto.ToBudgetRequestResponse(br))
}

// review godoc
// @Summary Review a budget request
// @Description Approves (crediting the balance) or rejects a pending request exactly once
// @Tags budget-requests
// @Accept  json
// @Produce  json
// @Param   requestID path string true "Request ID"
// @Param   review body dto.ReviewRequestRequest true "Decision"
// @Success 200 {object} dto.BudgetRequestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already reviewed"
// @Security BearerAuth
// @Router /budget-requests/{requestID}/review [post]
func (h *budgetRequestHandler) review(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.ReviewRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	br, err := h.service.ReviewBudgetRequest(c.Request.Context(), actor, c.Param("requestID"), req.Decision, req.RejectionReason)
	if err != nil {
		respondError(c, err, "review budget request")
		return
	}
	c.JSON(http.StatusOK, dto.ToBudgetRequestResponse(br))
}

type deletionRequestHandler struct {
	service portssvc.DeletionRequestSvcFacade
}

// RegisterDeletionRequestRoutes registers routes for invoice deletion requests.
func RegisterDeletionRequestRoutes(rg *gin.RouterGroup, service portssvc.DeletionRequestSvcFacade) {
	h := &deletionRequestHandler{service: service}

	requests := rg.Group("/deletion-requests")
	{
		requests.POST("", h.create)
		requests.GET("/pending", h.listPending)
		requests.GET("/:requestID", h.get)
		requests.POST("/:requestID/review", h.review)
	}
}

// create godoc
// @Summary Request deletion of an invoice
// @Tags deletion-requests
// @Accept  json
// @Produce  json
// @Param   request body dto.CreateDeletionRequestRequest true "Invoice and reason"
// @Success 201 {object} dto.DeletionRequestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "A request is already pending"
// @Security BearerAuth
// @Router /deletion-requests [post]
func (h *deletionRequestHandler) create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateDeletionRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	dr, err := h.service.CreateDeletionRequest(c.Request.Context(), actor, req.InvoiceID, req.Reason)
	if err != nil {
		respondError(c, err, "create deletion request")
		return
	}
	c.JSON(http.StatusCreated, dto.ToDeletionRequestResponse(dr))
}

// listPending godoc
// @Summary List pending deletion requests
// @Tags deletion-requests
// @Produce  json
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {object} dto.ListDeletionRequestsResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /deletion-requests/pending [get]
func (h *deletionRequestHandler) listPending(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var params dto.ListRequestsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}

	requests, err := h.service.ListPendingDeletionRequests(c.Request.Context(), actor, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "list deletion requests")
		return
	}
	c.JSON(http.StatusOK, dto.ToListDeletionRequestsResponse(requests))
}

// get godoc
// @Summary Get a deletion request
// @Tags deletion-requests
// @Produce  json
// @Param   requestID path string true "Request ID"
// @Success 200 {object} dto.DeletionRequestResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /deletion-requests/{requestID} [get]
func (h *deletionRequestHandler) get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	dr, err := h.service.GetDeletionRequest(c.Request.Context(), actor, c.Param("requestID"))
	if err != nil {
		respondError(c, err, "retrieve deletion request")
		return
	}
	c.JSON(http.StatusOK, dto.ToDeletionRequestResponse(dr))
}

// review godoc
// @Summary Review a deletion request
// @Description Approval deletes the invoice and its image and refunds any outstanding deduction
// @Tags deletion-requests
// @Accept  json
// @Produce  json
// @Param   requestID path string true "Request ID"
// @Param   review body dto.ReviewRequestRequest true "Decision"
// @Success 200 {object} dto.DeletionRequestResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse "Object storage unavailable; nothing was changed"
// @Security BearerAuth
// @Router /deletion-requests/{requestID}/review [post]
func (h *deletionRequestHandler) review(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.ReviewRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	dr, err := h.service.ReviewDeletionRequest(c.Request.Context(), actor, c.Param("requestID"), req.Decision, req.RejectionReason)
	if err != nil {
		respondError(c, err, "review deletion request")
		return
	}
	c.JSON(http.StatusOK, dto.ToDeletionRequestResponse(dr))
}
