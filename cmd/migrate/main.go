package main

import (
	"fmt"
	"log"
	"os"

	"finhealth/backend/database"
)

func main() {
	// Initialize database connection; InitDB creates the schema and runs
	// all pending migrations.
	err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	fmt.Println("Migrations completed successfully!")
	os.Exit(0)
}
