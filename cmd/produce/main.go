package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"packledger/internal/app"
	"packledger/internal/core"
	"packledger/internal/db"

	"github.com/joho/godotenv"
)

// produce reads a production request document (JSON) from the file named as
// the first argument, or from stdin, applies it to the ledger, and prints
// the result document.
func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.SettingsFromEnv())
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	raw, err := readInput()
	if err != nil {
		log.Fatalf("Failed to read request: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Fatalf("Request is not valid JSON: %v", err)
	}

	service := app.NewAppService(core.NewProducer(pool, core.NewPostgresCatalog()))
	result, err := service.ProducePackage(ctx, doc)
	if err != nil {
		log.Fatalf("Production failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}

func readInput() ([]byte, error) {
	if len(os.Args) > 1 {
		return os.ReadFile(os.Args[1])
	}
	return io.ReadAll(os.Stdin)
}
