package main

import (
	"time"

	"github.com/cppla/eventboard/config"
	"github.com/cppla/eventboard/controllers"
	"github.com/cppla/eventboard/hydrate"
	"github.com/cppla/eventboard/routes"
	"github.com/cppla/eventboard/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	seeder, closeSource := hydrate.FromConfig(cfg)
	defer closeSource()

	svc := routes.NewBoardService(cfg, seeder)

	var cache controllers.ListCache
	if cfg.CacheEnabled {
		if c := utils.NewRedisCache(utils.GetRedis(), time.Duration(cfg.CacheTTLSeconds)*time.Second); c != nil {
			cache = c
			utils.Sugar.Info("board list cache enabled")
		}
	}

	r := routes.SetupRouter(svc, cache)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
