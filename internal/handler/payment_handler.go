package handler

import (
	"net/http"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	secret         []byte
}

func NewPaymentHandler(paymentService service.PaymentService, secret []byte) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		secret:         secret,
	}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleCashier, middleware.RoleAuditor)
	write := middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleCashier)

	router.POST("/api/invoices/:id/payments", write, h.ApplyPayment)
	router.GET("/api/invoices/:id/payments", read, h.ListPayments)
	router.GET("/api/payments/advances", read, h.ListAdvances)
}

// ApplyPayment records a payment against an invoice
// @Summary      Apply payment
// @Description  Applies up to the outstanding balance; any excess becomes an advance payment
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                           true  "Invoice ID"
// @Param        payload  body      service.ApplyPaymentRequest  true  "Payment Payload"
// @Success      201      {object}  response.Response{data=service.ApplyPaymentResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *PaymentHandler) ApplyPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListPayments returns the payments applied to an invoice
// @Summary      List invoice payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}

// ListAdvances returns unallocated advance payments, newest first
// @Summary      List advance payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/payments/advances [get]
func (h *PaymentHandler) ListAdvances(c *gin.Context) {
	params := pagination.Parse(c)

	advances, total, err := h.paymentService.ListAdvances(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Wrap(advances, total)))
}
