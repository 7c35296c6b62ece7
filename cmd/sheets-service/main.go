// sheets-service serves the character sheet API.
//
// Configuration is read from the file named by --config, then SHEETS_CONFIG,
// and falls back to built-in defaults. The process shuts down gracefully on
// SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/pflag"

	"github.com/goliatone/go-sheets/components/sheetsapi"
	"github.com/goliatone/go-sheets/internal/config"
	"github.com/goliatone/go-sheets/internal/logging"
	"github.com/goliatone/go-sheets/internal/provider/fileprovider"
	"github.com/goliatone/go-sheets/internal/provider/httpprovider"
	"github.com/goliatone/go-sheets/internal/store/memory"
	"github.com/goliatone/go-sheets/internal/store/sqlitestore"
	"github.com/goliatone/go-sheets/pkg/materialize"
	"github.com/goliatone/go-sheets/pkg/provider"
	"github.com/goliatone/go-sheets/pkg/service"
	"github.com/goliatone/go-sheets/pkg/store"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	var configPath string
	var addr string

	flagSet := pflag.NewFlagSet("sheets-service", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to sheets.yaml (default: $"+config.EnvVar+")")
	flagSet.StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	app, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(app, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg.Server, app.Handler(), logger)
}

// build wires the store, template provider, service, and API component
// described by cfg. Closing the component closes the store.
func build(cfg *config.Config, logger *slog.Logger) (*sheetsapi.Component, error) {
	sheetStore, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	templates, templateURL, err := openProvider(cfg.Templates, logger)
	if err != nil {
		closeStore(sheetStore, logger)
		return nil, err
	}

	options := []service.Option{
		service.WithStore(sheetStore),
		service.WithProvider(templates),
		service.WithMaterializer(materialize.New(materialize.WithMaxDepth(cfg.Sheets.MaxDepth))),
		service.WithRevalidateUpdates(cfg.Sheets.RevalidateUpdates),
		service.WithLogger(logger),
	}
	if cfg.Sheets.SanitizeStrings {
		options = append(options, service.WithSanitizer(bluemonday.StrictPolicy()))
	}
	svc := service.New(options...)

	return sheetsapi.New(svc,
		sheetsapi.WithTemplateServiceURL(templateURL),
		sheetsapi.WithLogger(logger),
	), nil
}

func closeStore(c io.Closer, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("close store", "error", err)
	}
}

func openStore(cfg config.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory sheet store, data is lost on exit")
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlitestore.Open(sqlitestore.Config{
			Path:     cfg.Path,
			PoolSize: cfg.PoolSize,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openProvider returns the template provider and the location reported by
// the health route.
func openProvider(cfg config.TemplatesConfig, logger *slog.Logger) (provider.Provider, string, error) {
	switch cfg.Provider {
	case config.ProviderHTTP:
		p, err := httpprovider.New(httpprovider.Options{
			BaseURL: cfg.URL,
			Timeout: cfg.Timeout,
			Retries: cfg.Retries,
			Logger:  logger,
		})
		if err != nil {
			return nil, "", err
		}
		return p, p.BaseURL(), nil
	case config.ProviderFile:
		p, err := fileprovider.New(cfg.Dir)
		if err != nil {
			return nil, "", err
		}
		return p, "file://" + p.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown template provider %q", cfg.Provider)
	}
}

func serve(ctx context.Context, cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sheets service listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
