package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linemk/gogol-pizza/internal/app"
	"github.com/linemk/gogol-pizza/internal/app/handlers"
	"github.com/linemk/gogol-pizza/internal/config"
	"github.com/linemk/gogol-pizza/internal/lib/clock"
	"github.com/linemk/gogol-pizza/internal/lib/logger"
	"github.com/linemk/gogol-pizza/internal/lib/metrics"
	"github.com/linemk/gogol-pizza/internal/mpesa"
	"github.com/linemk/gogol-pizza/internal/realtime"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/linemk/gogol-pizza/internal/storage"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	clk := clock.NewSystem()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	analyticsRepo := storage.NewAnalyticsRepository(application.DB)

	hub := realtime.NewHub(log, m, cfg.Realtime.SendBuffer)
	relay := realtime.NewKafkaRelay(log, cfg.Kafka.BrokerList(), cfg.Kafka.Topic)
	if relay != nil {
		log.Info("relaying order events", slog.String("topic", cfg.Kafka.Topic))
	}
	dispatcher := realtime.NewDispatcher(log, hub, relay)

	gateway := mpesa.NewClient(
		mpesa.BaseURLFor(cfg.MPesa.Env, cfg.MPesa.BaseURL),
		mpesa.Credentials{
			ConsumerKey:    cfg.MPesa.ConsumerKey,
			ConsumerSecret: cfg.MPesa.ConsumerSecret,
			ShortCode:      cfg.MPesa.ShortCode,
			Passkey:        cfg.MPesa.Passkey,
			CallbackURL:    cfg.MPesa.CallbackURL,
		},
		&http.Client{Timeout: cfg.MPesa.Timeout},
		clk,
	)
	mailer := service.NewResendMailer(cfg.Resend.APIKey, cfg.Resend.From)

	services := app.Services{
		Auth: service.NewAuthService(log, userRepo, mailer, clk, service.AuthOptions{
			JWTSecret:      cfg.JWT.Secret,
			TokenTTL:       time.Duration(cfg.JWT.TokenTTL) * time.Minute,
			SellerEmail:    cfg.Seller.Email,
			SellerPassword: cfg.Seller.Password,
			CodeTTL:        cfg.Seller.CodeTTL,
			Production:     cfg.IsProduction(),
		}),
		Product: service.NewProductService(log, productRepo),
		Cart:    service.NewCartService(log, cartRepo),
		Order:   service.NewOrderService(log, orderRepo, dispatcher, clk),
		Payment: service.NewPaymentService(log, orderRepo, gateway, dispatcher, m),
		Seller:  service.NewSellerService(log, analyticsRepo, userRepo, clk),
	}

	router := app.NewRouter(log, services, app.RouterOptions{
		JWTSecret:      cfg.JWT.Secret,
		Cookie:         handlers.CookieConfig{Name: cfg.JWT.CookieName, Secure: cfg.IsProduction()},
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Hub:            hub,
		WS: realtime.WSOptions{
			PingInterval: cfg.Realtime.PingInterval,
			WriteTimeout: cfg.Realtime.WriteTimeout,
		},
		Metrics:  m,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	if relay != nil {
		if err := relay.Close(); err != nil {
			log.Error("event relay close failed", slog.Any("error", err))
		}
	}
	log.Info("server gracefully stopped")
}
