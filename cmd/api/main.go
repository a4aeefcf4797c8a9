package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	tallyHttp "github.com/MrJamesThe3rd/tally/internal/http"
	customerHandler "github.com/MrJamesThe3rd/tally/internal/http/customer"
	invoiceHandler "github.com/MrJamesThe3rd/tally/internal/http/invoice"
	paymentHandler "github.com/MrJamesThe3rd/tally/internal/http/payment"
	productHandler "github.com/MrJamesThe3rd/tally/internal/http/product"
	statementHandler "github.com/MrJamesThe3rd/tally/internal/http/statement"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	svc := app.New(cfg, db)

	router := tallyHttp.New(tallyHttp.Handlers{
		Customers:  customerHandler.NewHandler(svc.Customers),
		Products:   productHandler.NewHandler(svc.Products, svc.Imports),
		Invoices:   invoiceHandler.NewHandler(svc.Invoices),
		Quotes:     invoiceHandler.NewQuoteHandler(svc.Invoices),
		Payments:   paymentHandler.NewHandler(svc.Payments),
		Statements: statementHandler.NewHandler(svc.Statements),
	}, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "app", cfg.App.Name, "addr", server.Addr, "vat_rate", cfg.Billing.VATRate)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
