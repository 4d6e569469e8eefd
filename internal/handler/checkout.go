package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/declared-as-ala/backend/internal/apperr"
	"github.com/declared-as-ala/backend/internal/dto"
	"github.com/declared-as-ala/backend/internal/service"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// toHTTPError maps the apperr taxonomy onto status codes in one place.
func toHTTPError(err error) error {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindAmountMismatch, apperr.KindSignature:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindStateConflict:
		status = http.StatusUnprocessableEntity
	case apperr.KindProcessor:
		status = http.StatusBadGateway
	default:
		return err
	}
	return echo.NewHTTPError(status, map[string]string{"error": apperr.ReasonOf(err)})
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.checkoutService.CreateCheckout(ctx, &req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *CheckoutHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	if err := h.checkoutService.HandleCardWebhook(ctx, c.Request().Header, body); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

func (h *CheckoutHandler) Capture(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CaptureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.checkoutService.CaptureWallet(ctx, req.RemoteSessionID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *CheckoutHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()

	orderID := c.Param("orderID")
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing order id")
	}

	result, err := h.checkoutService.OrderStatus(ctx, orderID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, result)
}
