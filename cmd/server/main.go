package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/emkxpress/shop/internal/config"
	"github.com/emkxpress/shop/internal/db"
	"github.com/emkxpress/shop/internal/events"
	"github.com/emkxpress/shop/internal/gateway"
	"github.com/emkxpress/shop/internal/httpserver"
	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/logging"
	"github.com/emkxpress/shop/internal/repo"
	"github.com/emkxpress/shop/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(httpserver.RequestLogger(logger))

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaAddress)

	gateways := map[string]gateway.Client{}
	flw := gateway.NewFlutterwave(cfg.FlutterSecretKey)
	gateways[flw.Name()] = flw
	pst := gateway.NewPaystack(cfg.PaystackSecretKey, cfg.PaystackCallback)
	gateways[pst.Name()] = pst

	gormRepo := &repo.GormRepo{DB: database}
	resolver := &identity.Resolver{JWTSecret: cfg.JWTSecret}

	orderService := &service.OrderService{Repo: gormRepo}
	cartService := &service.CartService{Repo: gormRepo}
	shippingService := &service.ShippingService{Repo: gormRepo}
	checkoutService := &service.CheckoutService{
		Repo:        gormRepo,
		Gateways:    gateways,
		Producer:    producer,
		RedirectURL: cfg.FlutterRedirectURL,
	}
	reconcileService := &service.ReconcileService{
		Repo:     gormRepo,
		Gateways: gateways,
		Orders:   orderService,
		Producer: producer,
	}

	httpserver.Register(e, &httpserver.Deps{
		ProductHandler:  &httpserver.ProductHTTP{Repo: gormRepo},
		CartHandler:     &httpserver.CartHTTP{Svc: cartService, Orders: orderService, Resolver: resolver},
		ShippingHandler: &httpserver.ShippingHTTP{Svc: shippingService, Resolver: resolver},
		CheckoutHandler: &httpserver.CheckoutHTTP{
			Checkout:          checkoutService,
			Engine:            reconcileService,
			Resolver:          resolver,
			FlutterHashSecret: cfg.FlutterHashSecret,
		},
	})

	go func() {
		log.Printf("Starting shop server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close: %v", err)
	}

	sqlDB, err := database.DB()
	if err == nil {
		sqlDB.Close()
	}

	log.Println("Server stopped")
}
