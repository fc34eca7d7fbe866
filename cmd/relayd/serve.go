package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"relayd/internal/config"
	"relayd/internal/httpapi"
	"relayd/internal/relay"
	"relayd/internal/upstream"
)

const shutdownGrace = 5 * time.Second

// buildService wires the upstream client, relay and model directory from cfg.
func buildService(cfg config.Config, log zerolog.Logger) (*relay.Service, error) {
	mode, err := relay.ParseLineMode(cfg.LineMode)
	if err != nil {
		return nil, err
	}
	up := upstream.New(cfg.UpstreamBase(), cfg.ConnectTimeout())
	r := relay.New(up, relay.Options{
		DefaultModel:    cfg.DefaultModel,
		Timeout:         cfg.RequestTimeout(),
		LineMode:        mode,
		ReadBufferBytes: cfg.ReadBufferBytes,
		MaxLineBytes:    cfg.MaxLineBytes,
		Logger:          log.With().Str("component", "relay").Logger(),
	})
	dir := relay.NewDirectory(up, cfg.RequestTimeout(), log.With().Str("component", "directory").Logger())
	return relay.NewService(r, dir, up, cfg.ReadyTimeout()), nil
}

// serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully. Streams still running after the grace period are canceled.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	svc, err := buildService(cfg, log)
	if err != nil {
		return err
	}

	// The HTTP layer gates its own lines per request, so it gets every level.
	httpapi.SetLogger(log.Level(zerolog.DebugLevel))
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("upstream", cfg.UpstreamBase()).Str("default_model", cfg.DefaultModel).Str("line_mode", cfg.LineMode).Msg("relayd listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown incomplete, canceling streams")
		cancelBase()
		_ = srv.Close()
	}
	return nil
}

// listModels prints one installed model name per line.
func listModels(ctx context.Context, cfg config.Config, log zerolog.Logger, out io.Writer) error {
	svc, err := buildService(cfg, log)
	if err != nil {
		return err
	}
	models, err := svc.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models from %s: %w", cfg.UpstreamBase(), err)
	}
	for _, m := range models {
		if _, err := fmt.Fprintln(out, m); err != nil {
			return err
		}
	}
	return nil
}
