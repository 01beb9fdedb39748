package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/saeidalz13/battleship-tcp/api"
	"github.com/saeidalz13/battleship-tcp/db"
	"github.com/saeidalz13/battleship-tcp/db/sqlc"
	"github.com/saeidalz13/battleship-tcp/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalln(err)
	}

	var dbManager *sqlc.DbManager
	if cfg.DatabaseURL != "" {
		conn := db.MustConnectToDb(cfg.DatabaseURL, db.DefaultMigrationDir)
		defer conn.Close()
		dbManager = sqlc.NewDbManager(sqlc.New(conn))
	}

	server, err := api.NewServerFromConfig(cfg, dbManager)
	if err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("starting battleship server (stage: %s, tcp: %d, ws: %d, max sessions: %d)", cfg.Stage, cfg.Port, cfg.WsPort, cfg.MaxSessions)
	if err := server.Run(ctx); err != nil {
		log.Println(err)
	}
}
