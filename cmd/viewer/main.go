package main

import (
	"fmt"
	"log"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"

	"linguachat/internal"
	"linguachat/repositories"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	DebugPort      int    `env:"DEBUG_PORT,default=8082"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if the relay process holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Start Debug Server Only
	// Empty stats provider since the relay isn't running here
	emptyStats := func() map[string]any {
		return map[string]any{
			"Status": "Viewer Mode (Read-Only)",
			"Time":   time.Now().Format(time.RFC822),
		}
	}

	color.Cyanln("linguachat viewer")
	color.Greenf("http://localhost:%d/inspect\n", config.DebugPort)

	internal.StartDebugServer(db, config.DebugPort, "/inspect", messageMapper, emptyStats)
	select {}
}

// Copy of the relay's messageMapper to keep the viewer independent
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
