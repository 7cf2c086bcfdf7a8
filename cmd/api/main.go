package main

import (
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/barterbridge/backend/internal/config"
	"github.com/barterbridge/backend/internal/db"
	"github.com/barterbridge/backend/internal/model"
	"github.com/barterbridge/backend/internal/server"
)

// Set via -ldflags at build time.
var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load", zap.Error(err))
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}

	if err := conn.AutoMigrate(
		&model.Company{},
		&model.User{},
		&model.CompanyMember{},
		&model.Service{},
		&model.ServiceViewEvent{},
		&model.TradeRequest{},
		&model.DealProposal{},
		&model.ActiveDeal{},
		&model.Review{},
		&model.TradeflowView{},
	); err != nil {
		log.Fatal("auto migrate", zap.Error(err))
	}

	srv := server.New(conn, log, gitSHA, buildTime)

	addr := ":" + cfg.Port
	log.Info("starting server", zap.String("addr", addr))
	if err := srv.Start(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
