package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	drainTimeout           = 3 * time.Second
)

const serverErrorMsg = "server: %w"

// serve starts the HTTP server in a goroutine and returns an error channel
func (a *App) serve() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		err := a.server.Start()
		a.logger.Debug().Err(err).Msg("Server goroutine terminating")
		errCh <- err
		close(errCh)
	}()
	return errCh
}

// waitForShutdownOrServerError waits for either a shutdown signal or server error
func (a *App) waitForShutdownOrServerError(serverErrCh <-chan error) (bool, error) {
	quit := make(chan os.Signal, 1)
	a.signalHandler.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer a.signalHandler.Stop(quit)

	select {
	case sig := <-quit:
		a.logger.Info().Str("signal", fmt.Sprint(sig)).Msg("Shutdown requested via signal")
		return true, nil
	case err, ok := <-serverErrCh:
		if !ok {
			return false, nil
		}
		return false, err
	}
}

// drainServerError waits for the server goroutine after a requested shutdown.
func (a *App) drainServerError(ch <-chan error) error {
	select {
	case err, ok := <-ch:
		if !ok {
			return nil
		}
		return err
	case <-time.After(drainTimeout):
		a.logger.Warn().Msg("Timeout waiting for server goroutine to complete")
		return errors.New("server goroutine failed to complete within timeout")
	}
}

// Run mounts the routes, starts the server and blocks until a shutdown
// signal is received or the server fails.
func (a *App) Run() error {
	if err := a.Mount(); err != nil {
		return err
	}

	serverErrCh := a.serve()
	shutdownRequested, serverErr := a.waitForShutdownOrServerError(serverErrCh)

	var errs []error
	if serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
		a.logger.Error().Err(serverErr).Msg("Server stopped unexpectedly")
		errs = append(errs, fmt.Errorf(serverErrorMsg, serverErr))
	}

	timeout := a.cfg.Server.Timeout.Shutdown
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := a.timeoutProvider.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.logger.Info().Msg("Shutting down application")
	if err := a.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if shutdownRequested {
		if err := a.drainServerError(serverErrCh); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, fmt.Errorf(serverErrorMsg, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown gracefully shuts down the modules and the HTTP server.
// Returns an aggregated error if any components fail to shut down.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	start := time.Now()

	if err := a.registry.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("modules: %w", err))
	}

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf(serverErrorMsg, err))
			a.logger.Error().Err(err).Msg("Failed to shutdown server")
		}
	}

	a.logger.Info().Dur("duration", time.Since(start)).Msg("Application shutdown complete")
	return errors.Join(errs...)
}
