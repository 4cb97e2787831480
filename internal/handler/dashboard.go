package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sales-pos/internal/service"
)

// DashboardHandler serves the admin metrics.
type DashboardHandler struct {
	Reports *service.ReportingService
}

func NewDashboardHandler(reports *service.ReportingService) *DashboardHandler {
	return &DashboardHandler{Reports: reports}
}

// Get computes the dashboard on every call; it is never cached.
func (h *DashboardHandler) Get(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	m, err := h.Reports.DashboardMetrics(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
