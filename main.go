package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg := DefaultConfig()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "game TCP listen address")
	flag.StringVar(&cfg.AdminAddr, "admin", cfg.AdminAddr, "admin HTTP listen address (empty = off)")
	flag.StringVar(&cfg.MapPath, "map", cfg.MapPath, "path to the exported map file")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite match history path (empty = off)")
	flag.StringVar(&cfg.LogPath, "log", cfg.LogPath, "rolling log file path")
	flag.IntVar(&cfg.MaxPlayers, "players", cfg.MaxPlayers, "lobby capacity")
	flag.Parse()

	InitLogger(cfg.LogPath)
	defer SyncLogger()

	gameMap := NewGameMap(cfg.MapPath)
	if err := gameMap.Load(); err != nil {
		Log.Fatalf("load map: %v", err)
	}
	Log.Infof("map loaded: %d walls, %d blocks", gameMap.WallCount(), gameMap.BlockCount())

	var db *DB
	if cfg.DBPath != "" {
		var err error
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			Log.Fatalf("open database: %v", err)
		}
		defer db.Close()
	}
	analytics := NewAnalytics(db, Log)
	defer analytics.Stop()

	metrics := &Metrics{}
	game := NewGame(cfg, gameMap, Log, metrics, analytics)
	server := NewServer(cfg, game, Log, metrics)
	if err := server.Start(); err != nil {
		Log.Fatalf("start server: %v", err)
	}

	if cfg.AdminAddr != "" {
		admin := StartAdmin(cfg.AdminAddr, game, metrics, Log)
		defer admin.Close()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	Log.Info("shutting down")
	server.Stop()
}
