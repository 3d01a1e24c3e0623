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

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"backchannel/auth"
	"backchannel/identity"
	"backchannel/infrastructure/httpapi"
	"backchannel/infrastructure/ws"
	"backchannel/projection"
	"backchannel/repositories"
	"backchannel/runtime"
	"backchannel/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so deferred cleanups always execute before
// the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories & services
	channelRepository := repositories.NewChannelRepository(db, log)
	messageRepository := repositories.NewMessageRepository(db, log)
	identityRepository := repositories.NewIdentityRepository(db, log)

	identityService, err := identity.NewService(identityRepository)
	if err != nil {
		return fmt.Errorf("identity pools: %w", err)
	}
	channelService := services.NewChannelService(channelRepository, log)
	messageService := services.NewMessageService(messageRepository, log)
	paginator := projection.NewPaginator(messageRepository, identityRepository, log)

	// 4. Bus, registry & transports
	registry := runtime.NewRegistry()
	bus := runtime.NewBus(log, registry, channelService, messageService,
		identityService, identityRepository, config.StoreTimeout, config.SinkTimeout)

	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	socket := ws.NewServer(log, bus, tokens, config.ConnectionBufferSize, config.WriteTimeout)
	handler := httpapi.NewHandler(log, channelService, paginator, bus,
		channelRepository, messageRepository)
	router := httpapi.NewRouter(log, handler, socket.Handle, tokens, config.CORSOrigin)

	// 5. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
