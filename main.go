package main

import (
	"github.com/Asvera/king-minister-game/config"
	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/monitor"
	"github.com/Asvera/king-minister-game/server"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Start metrics endpoint
	mon := monitor.NewMonitor("king_minister")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, mon)

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
