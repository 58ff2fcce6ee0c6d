package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/derrickappah/smm-panel-sub006/internal/adapter/handler"
	"github.com/derrickappah/smm-panel-sub006/internal/adapter/middleware"
	"github.com/derrickappah/smm-panel-sub006/internal/adapter/storage"
	"github.com/derrickappah/smm-panel-sub006/internal/core/approval"
	"github.com/derrickappah/smm-panel-sub006/internal/core/config"
	"github.com/derrickappah/smm-panel-sub006/internal/core/gateway"
	"github.com/derrickappah/smm-panel-sub006/internal/core/ledger"
	"github.com/derrickappah/smm-panel-sub006/internal/core/reconcile"
	"github.com/derrickappah/smm-panel-sub006/internal/core/worker"
)

func main() {
	// 1. Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 2. Load Config (missing gateway credentials are fatal here, not later)
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("❌ Config error", "error", err)
		os.Exit(1)
	}

	// 3. Connect to Database
	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}

	// 4. Setup Repos
	accountRepo := storage.NewAccountRepository(dbPool)
	txnRepo := storage.NewTransactionRepository(dbPool)

	// 5. Build the reconciliation core. One shared cache serves every
	// gateway adapter so tests and operators can reason about staleness.
	cache := gateway.NewCache()
	gateways := make(map[string]gateway.Client)
	gatewayNames := make(map[string]struct{})
	for name, gwCfg := range cfg.Gateways {
		if !gwCfg.Enabled {
			continue
		}
		switch name {
		case "paystack":
			gateways[name] = gateway.NewPaystack(gwCfg.BaseURL, gwCfg.SecretKey, cache)
		case "flutterwave":
			gateways[name] = gateway.NewFlutterwave(gwCfg.BaseURL, gwCfg.SecretKey, cache)
		}
		gatewayNames[name] = struct{}{}
	}

	balances := ledger.New(accountRepo)
	machine := approval.New(txnRepo, balances)
	sweeper := reconcile.NewSweeper(txnRepo, accountRepo, gateways, machine)

	// 6. Handlers
	accountHandler := &handler.AccountHandler{Repo: accountRepo}
	depositHandler := &handler.DepositHandler{Store: txnRepo, Accounts: accountRepo, Gateways: gatewayNames}
	webhookHandler := &handler.WebhookHandler{Store: txnRepo, Sweeper: sweeper}
	reconcileHandler := &handler.ReconcileHandler{Store: txnRepo, Sweeper: sweeper}

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	// 8. Routes
	api := app.Group("/v1")

	// Public
	api.Post("/accounts", accountHandler.CreateAccount)
	api.Post("/deposits", depositHandler.CreateDeposit)
	api.Get("/accounts/:id/balance", depositHandler.GetBalance)
	api.Post("/payments/webhook/:gateway", webhookHandler.HandleCallback)

	// Operator (shared secret)
	private := api.Use(middleware.Protected(cfg.SweepSecret))
	private.Get("/deposits", depositHandler.ListDeposits)
	private.Get("/stats", depositHandler.GetStats)
	private.Post("/reconcile/verify", reconcileHandler.VerifyTransaction)
	private.Post("/reconcile/sweep", reconcileHandler.RunSweep)

	// 9. Start Sweep Worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker.StartSweepWorker(workerCtx, sweeper, cfg.SweepInterval)

	// Graceful shutdown: finish in-flight requests, stop the worker,
	// close the pool.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("🛑 Shutting down server...")

	stopWorker()

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	dbPool.Close()
	slog.Info("👋 Server exited successfully")
}
