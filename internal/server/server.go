package server

import (
	"net/http"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/declared-as-ala/backend/internal/handler"
	authmw "github.com/declared-as-ala/backend/internal/middleware"
	"github.com/declared-as-ala/backend/internal/service"
)

type Server struct {
	echo            *echo.Echo
	checkoutHandler *handler.CheckoutHandler
	adminHandler    *handler.AdminHandler
	adminJWTSecret  string
}

type requestValidator struct {
	validate *validatorv10.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewServer(checkoutService service.CheckoutService, adminService service.OrderAdminService, adminJWTSecret string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validatorv10.New()}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		checkoutHandler: handler.NewCheckoutHandler(checkoutService),
		adminHandler:    handler.NewAdminHandler(adminService),
		adminJWTSecret:  adminJWTSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- checkout --------
	checkout := api.Group("/checkout")
	checkout.POST("", s.checkoutHandler.Checkout)
	checkout.POST("/webhook", s.checkoutHandler.Webhook)
	checkout.POST("/capture", s.checkoutHandler.Capture)
	checkout.GET("/:orderID/status", s.checkoutHandler.Status)

	// -------- back office --------
	admin := api.Group("/admin", authmw.AdminJWT(s.adminJWTSecret))
	admin.GET("/orders", s.adminHandler.ListOrders)
	admin.PUT("/orders/:orderID/delivered", s.adminHandler.MarkDelivered)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
