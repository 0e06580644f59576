package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"invoicer/cmd"
	"invoicer/internal/logger"
)

func main() {
	// Secrets referenced in config.yaml may come from .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Commands re-initialize the logger once config.yaml is read
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cmd.Execute()
}
