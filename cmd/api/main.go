package main

import (
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"datacheck/adapters/postgres"
	"datacheck/internal/api"
	"datacheck/internal/config"
	"datacheck/ports"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Printf("[API] no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] invalid configuration: %v", err)
	}

	var repo ports.CheckResultRepository
	if cfg.Database.Enabled {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("[API] failed to connect to database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewCheckResultRepository(db)
		log.Printf("[API] result persistence enabled")
	} else {
		log.Printf("[API] DATABASE_URL not set, result persistence disabled")
	}

	server := api.NewServer(cfg, repo)

	addr := ":" + cfg.Server.Port
	log.Printf("[API] listening on %s", addr)
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatal("Server failed:", err)
	}
}
