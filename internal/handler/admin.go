package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/declared-as-ala/backend/internal/repository"
	"github.com/declared-as-ala/backend/internal/service"
)

type AdminHandler struct {
	adminService service.OrderAdminService
}

func NewAdminHandler(adminService service.OrderAdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func (h *AdminHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	filter := repository.OrderListFilter{
		Status:   c.QueryParam("status"),
		Customer: c.QueryParam("customer"),
	}
	if v := c.QueryParam("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		filter.From = &from
	}
	if v := c.QueryParam("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		filter.To = &to
	}
	filter.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	orders, total, err := h.adminService.ListOrders(ctx, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
	})
}

func (h *AdminHandler) MarkDelivered(c echo.Context) error {
	ctx := c.Request().Context()

	orderID := c.Param("orderID")
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing order id")
	}

	if err := h.adminService.MarkDelivered(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "delivered"})
}
