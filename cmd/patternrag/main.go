package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/calderasoft/patternrag/internal/agent"
	"github.com/calderasoft/patternrag/internal/api"
	"github.com/calderasoft/patternrag/internal/common"
	"github.com/calderasoft/patternrag/internal/data/orchestrator"
	"github.com/calderasoft/patternrag/internal/retriever"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", ":8080", "listen address")
	patternsDir := flag.String("patterns", "", "pattern corpus directory (overrides PATTERNRAG_PATTERNS_DIR)")
	reindex := flag.Bool("reindex", false, "rebuild the index on startup")
	flag.Parse()

	logger := common.Logger()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("main: could not load .env", "error", err)
	}

	cfg, err := orchestrator.LoadConfig()
	if err != nil {
		return err
	}
	if *patternsDir != "" {
		cfg.PatternsDir = *patternsDir
	}

	orch, err := orchestrator.New(cfg)
	if err != nil {
		return err
	}
	defer orch.Close()

	if *reindex || orch.Ref().Load() == nil {
		if _, err := orch.Rebuild(context.Background(), *reindex); err != nil {
			logger.Warn("main: startup rebuild failed, serving without index", "error", err)
		}
	}

	retrCfg, err := retriever.LoadConfig()
	if err != nil {
		return err
	}
	retr, err := retriever.New(retrCfg, orch.Provider(), orch.Ref())
	if err != nil {
		return err
	}
	runner, err := agent.NewRunner(orch.Provider(), retr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           api.NewServer(orch, retr, runner).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("main: listening", "addr", *addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("main: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
