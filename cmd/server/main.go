package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/studio-gateway/internal/config"
	"github.com/jrsteele09/studio-gateway/server"
	"github.com/jrsteele09/studio-gateway/server/authflowrepo"
	"github.com/jrsteele09/studio-gateway/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serve builds the gateway once and keeps it listening. Store and configuration failures are
// returned to the caller; only a crashed listener is restarted.
func serve(c config.Config) error {
	sessionRepo, authFlowRepo, closeStore, err := newStores(c)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, err := server.New(c, sessionRepo, authFlowRepo, server.WithRegistry(registry))
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for {
		if err := run(c, handler); err != nil {
			log.Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
	return nil
}

func run(c config.Config, handler http.Handler) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- listenAndServe(httpServer)
	}()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// newStores picks Redis when REDIS_ADDR is set and process memory otherwise.
func newStores(c config.Config) (sessions.Repo, authflowrepo.Repo, func(), error) {
	if c.GetRedisAddr() == "" {
		log.Warn().Msg("REDIS_ADDR not set, sessions are kept in memory")
		return sessions.NewInMemoryRepo(), authflowrepo.NewInMemoryRepo(c.GetAuthFlowTimeout()), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.GetRedisAddr(),
		Password: c.GetRedisPassword(),
		DB:       c.GetRedisDB(),
	})
	sessionRepo := sessions.NewRedisRepo(client, c.GetSessionMaxAge())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sessionRepo.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("redis %s unreachable: %w", c.GetRedisAddr(), err)
	}
	log.Info().Str("addr", c.GetRedisAddr()).Msg("Using Redis session store")

	closeStore := func() {
		if err := client.Close(); err != nil {
			log.Err(err).Msg("failed to close redis client")
		}
	}
	return sessionRepo, authflowrepo.NewRedisRepo(client, c.GetAuthFlowTimeout()), closeStore, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
