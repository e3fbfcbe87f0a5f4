package main

import (
	"fmt"
	"os"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/app"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/db"
)

func main() {
	log, err := app.NewLogger()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Error("Loading config failed", "error", err)
		os.Exit(1)
	}

	pg, err := db.NewPostgresService(log, cfg.PostgresDSN)
	if err != nil {
		log.Error("Connecting to postgres failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := pg.AutoMigrateAll(); err != nil {
		log.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("Migrations applied")
}
