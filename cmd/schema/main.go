package main

import (
	"encoding/json"
	"fmt"
	"log"

	"packledger/internal/app"
)

// schema prints the JSON Schema of the accepted request document.
func main() {
	out, err := json.MarshalIndent(app.RequestSchema(), "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode schema: %v", err)
	}
	fmt.Println(string(out))
}
