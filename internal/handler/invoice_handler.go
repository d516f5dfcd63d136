package handler

import (
	"net/http"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	secret         []byte
}

func NewInvoiceHandler(invoiceService service.InvoiceService, secret []byte) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		secret:         secret,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleCashier, middleware.RoleAuditor)
	write := middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleCashier)
	admin := middleware.RequireRole(h.secret, middleware.RoleAdmin)

	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", write, h.CreateInvoice)
		invoices.GET("", read, h.ListInvoices)
		invoices.GET("/:id", read, h.GetInvoice)
		invoices.PUT("/:id/status", admin, h.OverrideStatus)
		invoices.POST("/:id/recompute", admin, h.RecomputeStatus)
	}
}

// CreateInvoice registers a billable invoice
// @Summary      Create invoice
// @Description  Creates an invoice; invoice_no is generated when omitted
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated list of invoices, optionally filtered by payment status
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by payment status (UNPAID, PARTIAL, PAID)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Failure      500     {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), service.InvoiceFilter{
		PaymentStatus: c.Query("status"),
		Page:          params.Page,
		Limit:         params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Wrap(invoices, total)))
}

// GetInvoice returns one invoice with its applied total and outstanding balance
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// OverrideStatus forces a payment status and records the reason in the audit log
// @Summary      Override invoice status
// @Description  Administrative override; the next payment recomputes the status again
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                            true  "Invoice ID"
// @Param        payload  body      service.OverrideStatusRequest  true  "Override Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/status [put]
func (h *InvoiceHandler) OverrideStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	invoice, err := h.invoiceService.OverrideStatus(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RecomputeStatus re-derives the status from the recorded payments
// @Summary      Recompute invoice status
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/recompute [post]
func (h *InvoiceHandler) RecomputeStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	invoice, changed, err := h.invoiceService.RecomputeStatus(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"invoice": invoice,
		"changed": changed,
	}))
}
