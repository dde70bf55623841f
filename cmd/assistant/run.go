package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pi-assistant/internal/handlers"
	"pi-assistant/internal/middleware"
	"pi-assistant/internal/router"
	"pi-assistant/internal/terminal"
)

const pageTitle = "Pi Assistant"

// runServe starts the web server and, unless --no-terminal is set, the
// terminal chat. Leaving the terminal chat does not stop the server.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting AI assistant")
	a := newApp(ctx, appOptions{withHub: true})
	defer a.Close()

	chatLimiter := middleware.NewRateLimiter(cfg.ChatRateLimit, time.Minute)
	defer chatLimiter.Stop()

	r := router.New(
		handlers.NewIndexHandler(pageTitle, logger),
		handlers.NewChatHandler(a.assistant, logger),
		chatLimiter,
		a.hub,
		cfg.FrontendURL,
		logger,
	)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("web interface ready", zap.String("url", "http://"+cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if !noTerminal {
		g.Go(func() error {
			if err := terminal.New(a.assistant, os.Stdin, os.Stdout, logger).Run(gctx); err != nil {
				logger.Warn("terminal chat stopped", zap.Error(err))
			}
			if gctx.Err() == nil {
				logger.Info("terminal chat closed, web interface still running")
			}
			return nil
		})
	}

	return g.Wait()
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, appOptions{})
	defer a.Close()

	return terminal.New(a.assistant, os.Stdin, os.Stdout, logger).Run(ctx)
}

// runFace is the display self-test: every expression in turn, then idle.
func runFace(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hold, err := cmd.Flags().GetDuration("hold")
	if err != nil {
		return err
	}

	renderer, hardware := openDisplay(os.Stdout)
	ctrl := expressionController(renderer, hardware)
	defer ctrl.Close()

	if err := ctrl.Demo(ctx, hold); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("expression test complete")
	return nil
}
