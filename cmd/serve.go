package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cardsync/core/loader"
	"cardsync/core/logger"
	"cardsync/core/metrics"
	"cardsync/core/middleware/auth"
	"cardsync/core/middleware/rayid"
	"cardsync/feature/cards"
	"cardsync/feature/run"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveDirectives run.Directives

// serveCmd exposes the saved catalog and asset store over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog, work plan and images over HTTP",
	Long: `Starts a read-only HTTP server over the saved catalog and the asset store.
Every route except /metrics and /health requires the configured API key.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	fs := serveCmd.Flags()
	fs.StringVar(&serveDirectives.AssetsPath, "assets-path", "", "Asset store root (overrides catalog.root)")
	fs.StringVarP(&serveDirectives.ProxyPath, "proxy-path", "p", "", "Directory of proxy images; enables the proxy locale")
	fs.BoolVarP(&serveDirectives.OptimizedPNG, "optimized-png", "o", false, "Report assets as optimized PNG instead of WebP")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logg, err := setup()
	if err != nil {
		return err
	}
	defer logg.Sync()

	d := serveDirectives
	r := run.New(cfg, logg)
	px, err := r.Proxy(d)
	if err != nil {
		return fmt.Errorf("failed to index proxy images: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	mgr := loader.NewManager()
	mgr.Register(cards.NewFeature(cards.NewService(r.Store(d), r.CatalogPath(d), d.Format(), px, cfg.Server.InventoryTTL(), logg)))

	// RayID first so every later log line carries it.
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Public: []string{"/health", "/metrics"}}))

	loaded, err := mgr.LoadAll(app)
	if err != nil {
		return fmt.Errorf("failed to load features: %w", err)
	}
	logg.Info("Features loaded", zap.Strings("features", loaded))

	errCh := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("port", cfg.Server.Port))
		errCh <- app.Listen(cfg.Server.Addr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	case <-cmd.Context().Done():
	}

	logg.Info("Shutting down server...")
	return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout())
}
