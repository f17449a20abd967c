package main // Entry point package

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/lmittmann/tint"   // human-friendly slog handler

	"github.com/iliyamo/hotel-billing/internal/config"
	"github.com/iliyamo/hotel-billing/internal/database"
	"github.com/iliyamo/hotel-billing/internal/handler"
	"github.com/iliyamo/hotel-billing/internal/objectstore"
	"github.com/iliyamo/hotel-billing/internal/pdf"
	"github.com/iliyamo/hotel-billing/internal/repository"
	"github.com/iliyamo/hotel-billing/internal/router"
	"github.com/iliyamo/hotel-billing/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	level := slog.LevelInfo
	if cfg.Env == "dev" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	// Process-wide clients, constructed once and injected; the stores
	// never build their own connections.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	blobs, err := objectstore.New(ctx, cfg.ObjectStore)
	cancel()
	if err != nil {
		slog.Error("object store connection failed", "error", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient() // nil disables rate limiting
	if rdb == nil {
		slog.Warn("redis unavailable; rate limiting disabled")
	}

	orderRepo := repository.NewOrderRepo(db)
	invoiceRepo := repository.NewInvoiceRepo(db)
	hotelRepo := repository.NewHotelRepo(db)

	orderSvc := service.NewOrderService(orderRepo, hotelRepo)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, blobs, hotelRepo, pdf.TextRenderer{})

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewOrderHandler(orderSvc),
		handler.NewBillingHandler(invoiceSvc, blobs),
		handler.NewHotelHandler(hotelRepo),
		cfg.JWTSecret,
		config.LoadRateLimitConfig(),
		rdb,
	)

	addr := ":" + cfg.Port
	slog.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
