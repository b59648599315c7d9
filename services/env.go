package services

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvVariables loads environment variables without doing any database
// operations. A .env file is optional; exported variables always win.
func LoadEnvVariables() {
	// Try first in the current directory, then in the parent directory
	envPaths := []string{".env", "../.env"}

	for _, path := range envPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("Error reading .env file %s: %v", path, err)
			continue
		}
		log.Printf("Loaded environment variables from %s", path)
		return
	}
}
