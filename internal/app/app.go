package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/product"
	"github.com/xenking/order-management/internal/domain/report"
	"github.com/xenking/order-management/internal/handler"
	"github.com/xenking/order-management/internal/storage/postgres"
	"github.com/xenking/order-management/pkg/health"
	"github.com/xenking/order-management/pkg/httpmiddleware"
)

const serviceName = "oms-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		lg.Info("Migrations applied")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Domain services.
	productService := product.NewService(productRepo)
	orderService := order.NewService(productRepo, orderRepo)
	reportService := report.NewService(productRepo, orderRepo)

	h, err := handler.NewHandler(productService, orderService, reportService, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newRouter(lg, m, cfg.CORS, healthSvc, h),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newRouter builds the root handler: health probes and API routes behind the
// middleware chain. Instrumentation and request logging run inside the
// router so the matched route pattern is known.
func newRouter(
	lg *zap.Logger,
	m httpmiddleware.Telemetry,
	corsCfg CORSConfig,
	healthSvc *health.Health,
	h *handler.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(httpmiddleware.Chain(
		httpmiddleware.Instrument(serviceName, m),
		httpmiddleware.LogRequests(),
	)...)

	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(r)

	return httpmiddleware.Wrap(r,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		cors.Handler(cors.Options{
			AllowedOrigins:   corsCfg.Origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposedHeaders:   []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: corsCfg.AllowCredentials,
			MaxAge:           86400,
		}),
	)
}
