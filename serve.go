package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/browserwing/actionrunner/api"
	"github.com/browserwing/actionrunner/config"
	"github.com/browserwing/actionrunner/executor"
	"github.com/browserwing/actionrunner/pkg/logger"
	"github.com/browserwing/actionrunner/pkg/metrics"
	"github.com/browserwing/actionrunner/services/browser"
	"github.com/browserwing/actionrunner/services/runner"
	"github.com/browserwing/actionrunner/storage"
	"github.com/browserwing/actionrunner/templates"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var host, port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// flags > environment > config file
			if host != "" {
				cfg.Server.Host = host
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Server host (default from config)")
	cmd.Flags().StringVar(&port, "port", "", "Server port (default from config)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(&cfg.Log)

	db, err := storage.NewBoltDB(cfg.Database.Path)
	if err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("actionrunner", reg)

	sinks := []runner.Sink{collector, runner.NewLogSink(log)}
	if cfg.Runner.SaveScreenshots {
		sinks = append(sinks, runner.NewScreenshotSink(cfg.Runner.ScreenshotDir, "api"))
	}
	r := runner.New(browser.NewProvisioner(cfg.Browser, cfg.Proxy, log), log,
		runner.WithSinks(sinks...),
		runner.WithExecutorOptions(executor.Options{
			TypeDelay: time.Duration(cfg.Runner.TypeDelayMS) * time.Millisecond,
		}),
	)

	limitCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	handler := api.NewHandler(r, db, collector, log, cfg.Runner.ExportMaxOutput).
		LimitRuns(limitCtx, cfg.Server.RunRateLimit, cfg.Server.RunBurst)
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.SetupRouter(handler, reg, cfg.Debug),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "[Server] ActionRunner API started at http://%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info(ctx, "[Server] Received exit signal: %v, shutting down", sig)
	case err := <-errCh:
		_ = db.Close()
		if err != nil {
			return errors.Wrap(err, "failed to start server")
		}
		return nil
	}

	// in-flight runs get up to 10 seconds to finish and close their browsers
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "[Server] Graceful shutdown failed: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Warn(ctx, "[Server] Failed to close database: %v", err)
	}
	log.Info(ctx, "[Server] Exited")
	return nil
}

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the built-in templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Name", "Description", "Parameters")
			for _, info := range templates.List() {
				params := make([]string, 0, len(info.Params))
				for _, p := range info.Params {
					name := p.Name
					if p.Required {
						name += "*"
					} else if p.Default != nil {
						name = fmt.Sprintf("%s=%v", name, p.Default)
					}
					params = append(params, name)
				}
				if err := table.Append([]string{info.Name, info.Description, strings.Join(params, ", ")}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}
