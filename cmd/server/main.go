package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michael24561/ConfiaPeBack/config"
	"github.com/michael24561/ConfiaPeBack/internal/database"
	"github.com/michael24561/ConfiaPeBack/internal/router"
	"github.com/michael24561/ConfiaPeBack/internal/service"
	"github.com/michael24561/ConfiaPeBack/pkg/mercadopago"
	"github.com/michael24561/ConfiaPeBack/pkg/payout"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[server] no .env file, using environment")
	}
	cfg := config.Load()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("[server] database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("[server] migrate: %v", err)
	}
	database.SeedAdmin(db)

	var gateway service.PaymentGateway
	if cfg.MercadoPago.AccessToken != "" {
		gateway, err = mercadopago.NewClient(cfg.MercadoPago.AccessToken)
		if err != nil {
			log.Fatalf("[server] mercadopago: %v", err)
		}
	} else {
		log.Println("[server] MP_ACCESS_TOKEN not set, checkout disabled")
	}

	var payouts payout.Provider
	if cfg.Payout.BaseURL != "" {
		payouts = payout.NewHTTPProvider(cfg.Payout.BaseURL, cfg.Payout.APIKey, cfg.Payout.Timeout)
	} else {
		log.Println("[server] PAYOUT_API_BASE_URL not set, using stub transfers")
		payouts = payout.StubProvider{}
	}

	r := router.Setup(cfg, router.Deps{DB: db, Gateway: gateway, Payouts: payouts})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[server] listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[server] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[server] forced shutdown: %v", err)
	}
}
