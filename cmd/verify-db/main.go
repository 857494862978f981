package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"packledger/internal/core"
	"packledger/internal/db"

	"github.com/joho/godotenv"
)

// verify-db introspects the configured database and prints which optional
// ledger features the deployment carries. It never writes anything.
func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.SettingsFromEnv())
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	producer := core.NewProducer(pool, core.NewPostgresCatalog())
	report, err := producer.VerifySchema(ctx)
	if err != nil {
		log.Fatalf("Schema verification failed: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
	fmt.Println(string(out))
}
