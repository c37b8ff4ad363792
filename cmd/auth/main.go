package main

import (
	"log"

	"github.com/aussiebroadwan/cradle/internal/auth/app"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment is the real source.
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
