package handler

import (
	"net/http"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	secret        []byte
}

func NewReportHandler(reportService service.ReportService, secret []byte) *ReportHandler {
	return &ReportHandler{reportService: reportService, secret: secret}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/reconciliation/mismatches",
		middleware.RequireRole(h.secret, middleware.RoleAdmin, middleware.RoleAuditor), h.GetMismatches)
}

// GetMismatches reports invoices whose stored status disagrees with their payments
// @Summary      Reconciliation report
// @Tags         reconciliation
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.ReconciliationReport}
// @Failure      500  {object}  response.Response
// @Router       /api/reconciliation/mismatches [get]
func (h *ReportHandler) GetMismatches(c *gin.Context) {
	report, err := h.reportService.Verify(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
