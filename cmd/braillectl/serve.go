package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"swipebraille/internal/api"
	"swipebraille/internal/config"
)

func cmdServe(args []string) {
	if err := runServe(args); err != nil {
		fatalf("Error: %v", err)
	}
}

// runServe returns instead of exiting so that its deferred cleanup runs.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (default: server.addr from config)")
	fs.Parse(args)

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)
	defer logger.Close()

	tracer, err := cfg.Tracer("braillectl")
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := tracer.Shutdown(); err != nil {
			logger.Warn("trace exporter shutdown failed", "error", err)
		}
	}()

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	path := cfg.MappingPath()
	tables := api.NewTableStore(loadTable(cfg, logger, ""), path, logger.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path != "" && cfg.Mapping.Watch {
		if err := tables.Watch(ctx, cfg.MappingDebounce()); err != nil {
			logger.Warn("mapping watch unavailable", "path", path, "error", err)
		}
	}

	// Layout, timings and address are fixed for the life of the server.
	// A config edit only re-reads the mapping table.
	if err := loader.Watch(); err != nil {
		logger.Warn("config watch unavailable", "path", loader.Path(), "error", err)
	} else {
		defer loader.Close()
		loader.OnChange(func(next *config.Config) {
			logger.Info("configuration reloaded", "path", loader.Path())
			if p := next.MappingPath(); p != "" && p != path {
				logger.Warn("mapping path changed, restart to follow it", "old", path, "new", p)
			}
			if path != "" {
				if _, err := tables.Reload(); err != nil {
					logger.Error("mapping table reload failed", "path", path, "error", err)
				}
			}
		})
		go func() {
			for err := range loader.Errors() {
				logger.Error("configuration reload rejected", "error", err)
			}
		}()
	}

	srv, err := api.NewServer(api.Options{
		Tables:       tables,
		Layout:       cfg.GestureLayout(),
		Repeat:       cfg.RepeatTimings(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		Logger:       logger,
		Tracer:       tracer,
	})
	if err != nil {
		return err
	}

	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}
	return nil
}
