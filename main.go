package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"formflow/flow"
	"formflow/server"
	"formflow/storage/badgerkv"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	formPath := envOr("FORMFLOW_FORM", "forms/demo.yaml")
	def, err := flow.LoadDefinition(formPath)
	if err != nil {
		log.Fatalf("Error loading form definition: %v", err)
	}

	store, err := badgerkv.Open(badgerkv.Config{
		Path:       envOr("FORMFLOW_DATA_DIR", "data"),
		SyncWrites: true,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Error opening store: %v", err)
	}
	defer store.Close()

	g := gin.Default()
	srv := server.New(def, flow.Config{}, store, logger)
	srv.Register(g)

	if err := g.Run(envOr("FORMFLOW_ADDR", ":8080")); err != nil {
		log.Fatalf("Error running server: %v", err)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
