package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/ncbao26/POS/internal/config"
	"github.com/ncbao26/POS/internal/db"
	"github.com/ncbao26/POS/internal/routes"
	"github.com/ncbao26/POS/internal/services/invoicing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	database, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}

	if cfg.SeedDemoData {
		if err := db.Seed(database); err != nil {
			log.Fatalf("seed error: %v", err)
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("timezone error: %v", err)
	}
	engine := invoicing.NewEngine(database, invoicing.WithLocation(loc))

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	routes.Register(router, database, cfg, engine)

	log.Printf("listening on %s (driver %s, timezone %s)", cfg.Addr, cfg.DbDriver, loc)
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
