package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/devilelephant/blacklist/config"
	"golang.org/x/sync/errgroup"
)

// Daemon is a long running background component started with the server
// and stopped on shutdown.
type Daemon interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}

type Server struct {
	configProvider *config.Provider
	handler        http.Handler
	logger         *slog.Logger
	reloadFunc     func() error
	daemons        []Daemon
	exitFunc       func(int)
}

// NewServer creates a server. reloadFunc runs on SIGHUP.
func NewServer(provider *config.Provider, handler http.Handler, logger *slog.Logger, reloadFunc func() error) *Server {
	return &Server{
		configProvider: provider,
		handler:        handler,
		logger:         logger,
		reloadFunc:     reloadFunc,
		exitFunc:       os.Exit,
	}
}

// AddDaemon registers d. Daemons start in the order added.
func (s *Server) AddDaemon(d Daemon) {
	s.daemons = append(s.daemons, d)
}

// Handler returns the handler the listener serves.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// DaemonNames lists the registered daemons in start order.
func (s *Server) DaemonNames() []string {
	names := make([]string, 0, len(s.daemons))
	for _, d := range s.daemons {
		names = append(names, d.Name())
	}
	return names
}

// Run serves until SIGINT, SIGTERM or SIGQUIT, or until the listener
// fails, then shuts everything down and exits the process.
func (s *Server) Run() {
	cfg := s.configProvider.Get().Server

	s.logger.Info("Server configuration",
		"addr", cfg.Addr,
		"read_timeout", cfg.ReadTimeout,
		"read_header_timeout", cfg.ReadHeaderTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownGracefulTimeout,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout.Duration,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
		WriteTimeout:      cfg.WriteTimeout.Duration,
		IdleTimeout:       cfg.IdleTimeout.Duration,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGHUP,  // kill -SIGHUP XXXX
		syscall.SIGINT,  // kill -SIGINT XXXX or Ctrl+c
		syscall.SIGTERM, // kill XXXX
		syscall.SIGQUIT, // kill -SIGQUIT XXXX
	)
	defer signal.Stop(sigCh)

	serverError := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ListenAndServe error", "err", err)
			serverError <- err
		}
	}()

	started := make([]Daemon, 0, len(s.daemons))
	for _, d := range s.daemons {
		s.logger.Info("Starting daemon", "name", d.Name())
		if err := d.Start(); err != nil {
			s.logger.Error("Daemon failed to start, shutting down", "name", d.Name(), "err", err)
			s.shutdown(srv, started)
			s.exitFunc(1)
			return
		}
		started = append(started, d)
	}

	exitCode := 0
wait:
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				s.logger.Info("Received SIGHUP - reloading configuration")
				if err := s.reloadFunc(); err != nil {
					s.logger.Error("Reload failed, keeping the current configuration", "err", err)
				}
				continue
			}
			s.logger.Info("Received shutdown signal - gracefully shutting down", "signal", sig.String())
			break wait
		case err := <-serverError:
			s.logger.Error("Server error - initiating shutdown", "err", err)
			exitCode = 1
			break wait
		}
	}

	if err := s.shutdown(srv, started); err != nil {
		exitCode = 1
	}
	if exitCode == 0 {
		s.logger.Info("All systems stopped gracefully")
	}
	s.exitFunc(exitCode)
}

func (s *Server) shutdown(srv *http.Server, daemons []Daemon) error {
	timeout := s.configProvider.Get().Server.ShutdownGracefulTimeout.Duration
	gracefulCtx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()

	shutdownGroup, _ := errgroup.WithContext(gracefulCtx)

	shutdownGroup.Go(func() error {
		s.logger.Info("Shutting down HTTP server")
		if err := srv.Shutdown(gracefulCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "err", err)
			return err
		}
		s.logger.Info("HTTP server stopped gracefully")
		return nil
	})

	for _, d := range daemons {
		shutdownGroup.Go(func() error {
			s.logger.Info("Shutting down daemon", "name", d.Name())
			if err := d.Stop(gracefulCtx); err != nil {
				s.logger.Error("Daemon shutdown error", "name", d.Name(), "err", err)
				return err
			}
			return nil
		})
	}

	if err := shutdownGroup.Wait(); err != nil {
		s.logger.Error("Error during shutdown", "err", err)
		return err
	}
	return nil
}
