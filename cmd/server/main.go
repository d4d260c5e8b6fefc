package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parley/auth"
	"parley/gateway"
	"parley/handlers"
	"parley/internal"
	"parley/moderation"
	"parley/observability"
	"parley/repositories"
	"parley/services"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer (database close, index flush)
// executes before the process exits.
func run() (int, error) {
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := internal.LoggerFromString(config.LogLevel)

	// Storage. An empty filepath selects the in-memory mode: state lives
	// for the process lifetime only, which is the default deployment.
	db, err := badger.Open(buildBadgerOpts(config))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(buildBlugeConfig(config))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	users := repositories.NewUserRepository(db)
	chats := repositories.NewChatRepository(db)
	messages := repositories.NewMessageRepository(db, logger)
	index := repositories.NewUserIndex(blugeWriter)

	// With a persistent database and a fresh index, search would silently
	// miss existing identities, so the index is rebuilt at boot.
	if err := seedUserIndex(users, index); err != nil {
		return exitRuntime, fmt.Errorf("failed to seed user index: %w", err)
	}

	moderator, err := buildModerator(config, logger)
	if err != nil {
		return exitConfig, err
	}

	tokens := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	gw := gateway.New(logger, tokens, users, chats, config.ConnectionBufferSize)

	router := handlers.NewRouter(handlers.RouterDeps{
		Log:          logger,
		Tokens:       tokens,
		Auth:         services.NewAuthService(users, index, tokens),
		Chats:        services.NewChatService(chats, users, messages, gw),
		Messages:     services.NewMessageService(chats, messages, moderator, gw, logger, config.MaxContentLength),
		Users:        services.NewUserService(users, index),
		Gateway:      gw,
		Monitor:      observability.NewMonitor(logger),
		DefaultLimit: config.DefaultPageLimit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, draining connections...")
	case err := <-errChan:
		return exitRuntime, err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return exitRuntime, fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config) badger.Options {
	if config.BadgerFilepath == "" {
		return badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.WARNING)
	}
	return badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING)
}

func buildBlugeConfig(config internal.Config) bluge.Config {
	if config.BlugeFilepath == "" {
		return bluge.InMemoryOnlyConfig()
	}
	return bluge.DefaultConfig(config.BlugeFilepath)
}

// buildModerator returns nil when no censored words are configured;
// moderation is then disabled.
func buildModerator(config internal.Config, logger *slog.Logger) (*moderation.Moderator, error) {
	words := config.CensoredWordList()
	if len(words) == 0 {
		return nil, nil
	}
	replacement, err := config.CharacterRune()
	if err != nil {
		return nil, err
	}
	moderator, err := moderation.NewModerator(words, replacement, logger)
	if err != nil {
		return nil, fmt.Errorf("moderator init failed: %w", err)
	}
	return moderator, nil
}

func seedUserIndex(users repositories.IUserRepository, index repositories.IUserIndex) error {
	all, err := users.All()
	if err != nil {
		return err
	}
	for _, user := range all {
		if err := index.Index(user); err != nil {
			return err
		}
	}
	return nil
}
