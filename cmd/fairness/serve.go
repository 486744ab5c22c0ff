package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	urfave "github.com/urfave/cli/v3"

	"github.com/okian/fairness/internal/adapters/http/api"
	"github.com/okian/fairness/internal/adapters/http/swagger"
	service "github.com/okian/fairness/internal/app"
	"github.com/okian/fairness/internal/cli"
	"github.com/okian/fairness/internal/config"
	"github.com/okian/fairness/pkg/logger"
	"github.com/okian/fairness/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

const flagAddr = "addr"

func serveCmd(logs io.Writer) *urfave.Command {
	return &urfave.Command{
		Name:  "serve",
		Usage: "serve the scoring API over HTTP; SIGHUP re-reads the pin and reloads the model",
		Flags: append(cli.CommonFlags(),
			&urfave.StringFlag{Name: flagAddr, Usage: "listen address"},
		),
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			cfg, err := cli.LoadConfig(ctx, cmd, logs)
			if err != nil {
				return err
			}
			if cmd.IsSet(flagAddr) {
				cfg.Addr = cmd.String(flagAddr)
			}
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Addr, err)
			}

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			reread := func(ctx context.Context) (*config.Config, error) { return cli.Reread(ctx, cmd) }
			return serve(ctx, cfg, ln, hup, reread)
		},
	}
}

// rereadFunc loads the configuration a reload applies.
type rereadFunc func(ctx context.Context) (*config.Config, error)

// serve runs the API on ln until ctx is done. Each value on reload makes the
// service take the pinned hash from reread and reload the model.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener, reload <-chan os.Signal, reread rereadFunc) error {
	log := logger.Named("serve")

	svc, err := cli.StartService(ctx, cfg)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, cfg.MaxRoundSize).Register(ctx, mux)

	srv := &http.Server{
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return shutdown(ctx, srv, log)
		case err, ok := <-serveErr:
			if ok {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-reload:
			_ = reloadModel(ctx, svc, cfg.ModelPath, reread, log)
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func shutdown(ctx context.Context, srv *http.Server, log logger.Logger) error {
	log.Info(ctx, "shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

// reloadModel takes a new pin from reread and reloads the model from
// modelPath. A failed reload keeps the previous model active.
func reloadModel(ctx context.Context, svc *service.Service, modelPath string, reread rereadFunc, log logger.Logger) error {
	next, err := reread(ctx)
	if err != nil {
		log.Error(ctx, "reload: read config", logger.Error(err))
		return err
	}
	if next.ModelPath != modelPath {
		log.Warn(ctx, "reload: model_path changes need a restart; reloading the current path",
			logger.String("model_path", modelPath),
			logger.String("configured", next.ModelPath),
		)
	}
	if err := svc.Reload(ctx, next.ExpectedHash); err != nil {
		log.Error(ctx, "reload failed; previous model stays active",
			logger.String("model_hash", svc.ModelHash()),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
