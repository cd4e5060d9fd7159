package main

import (
	"context"
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

	"linguachat/auth"
	"linguachat/document"
	"linguachat/infrastructure/httpapi"
	"linguachat/infrastructure/ws"
	"linguachat/internal"
	"linguachat/observability"
	"linguachat/repositories"
	"linguachat/runtime"
	"linguachat/runtime/workers"
	"linguachat/services"
	"linguachat/storage"
	"linguachat/translate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
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
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Collaborators & core
	stats := observability.NewRelayStats(log)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)

	attachments, err := storage.NewDiskAttachmentStore(config.AttachmentDir, log)
	if err != nil {
		return err
	}

	pipeline := translate.NewPipeline(log, config.TranslateEndpoint, config.TranslateAPIKey,
		config.TranslateTimeout, config.DocumentTranslateTimeout, stats)
	documents := document.NewService(log, document.PlainTextExtractor{}, pipeline)

	registry := runtime.NewRegistry()
	presence := runtime.NewBroadcaster(log, registry, stats, config.SinkTimeout)
	relay := runtime.NewRelay(log, registry, userRepository, messageRepository,
		pipeline, attachments, stats)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewHealthMonitoringWorker(log, stats, config.MetricInterval))

	chatService := services.NewChatService(log, registry, presence, relay,
		messageRepository, userRepository)
	tokens := auth.NewTokenManager(config.AuthSecret, config.AuthTokenDuration)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)

	// 5. Transports
	wsServer := ws.NewServer(log, chatService, relay, sup,
		config.ConnectionBufferSize, config.WriteTimeout)
	api := httpapi.NewServer(log, chatService, documents, tokens)

	mux := api.Routes()
	mux.HandleFunc("GET /ws", wsServer.Handle)

	internal.StartDebugServer(db, config.DebugPort, "/inspect", messageMapper, stats.Provider())

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	// Use an error channel to capture ListenAndServe issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

// messageMapper renders stored messages in the inspect dashboard.
func messageMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	stored, err := repositories.DecodeStoredMessage(val)
	if err != nil {
		return row
	}

	row.Type = "MSG"
	if stored.IsVoiceMessage {
		row.Type = "VOICE"
	}
	row.Detail = fmt.Sprintf("%s -> %s : %s", stored.SenderID, stored.ReceiverID, stored.Text)
	return row
}
