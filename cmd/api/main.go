package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/declared-as-ala/backend/internal/cache"
	"github.com/declared-as-ala/backend/internal/client"
	"github.com/declared-as-ala/backend/internal/config"
	"github.com/declared-as-ala/backend/internal/logger"
	"github.com/declared-as-ala/backend/internal/repository"
	"github.com/declared-as-ala/backend/internal/server"
	"github.com/declared-as-ala/backend/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := client.InitMysqlClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	cardClient := client.NewCardClient(&cfg.Card)
	walletClient := client.NewWalletClient(&cfg.Wallet)
	pendingStore := cache.NewPendingStore(&cfg.Redis)
	mailer := service.NewMailer(&cfg.SMTP)

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	checkoutService := service.NewCheckoutService(
		cardClient,
		walletClient,
		orderRepo,
		productRepo,
		discountRepo,
		customerRepo,
		webhookEventRepo,
		pendingStore,
		mailer,
		log,
	)
	adminService := service.NewOrderAdminService(orderRepo)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(checkoutService, adminService, cfg.Admin.JWTSecret)

	log.Info("starting HTTP server", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		log.Fatal("HTTP server shutdown error", zap.Error(err))
	}
}
