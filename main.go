package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
)

var db *sqlx.DB

// spectatorHandler wraps the spectator endpoints with caching control and
// optional request logging.
func spectatorHandler(h *Hub) http.Handler {
	var handler http.Handler = disableCaching(newSpectatorMux(h))
	if appLogger != nil && appLogger.logRequests {
		handler = &LoggingHandler{Handler: handler, Logger: appLogger}
	}
	return handler
}

func main() {
	fv := registerFlags()
	flag.Parse()
	cfg := loadConfig(*fv.configPath)
	fv.applyTo(&cfg)

	// Set up logging to both stdout and file
	logFile, err := os.OpenFile("mafia.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	if err := InitAppLogger(cfg.toLogConfig()); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer CloseAppLogger()

	if appLogger.IsEnabled() {
		log.Println("Extended logging enabled")
	}

	db, err = openDB(cfg.DB)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()
	appLogger.attachDB(db)
	LogDBState("after initDB")

	if *fv.stats {
		s, err := queryStats(db)
		if err != nil {
			log.Fatal("Failed to read stats:", err)
		}
		printStats(os.Stdout, s)
		return
	}

	gameCfg, err := cfg.gameConfig()
	if err != nil {
		log.Fatal("Invalid game configuration: ", err)
	}
	roster, err := loadRoster(cfg.Roster)
	if err != nil {
		log.Fatal("Invalid roster: ", err)
	}
	console := newConsoleInput(os.Stdin)
	seats, err := buildSeats(cfg, roster, console, os.Stdout)
	if err != nil {
		log.Fatal("Failed to set up players: ", err)
	}
	if err := gameCfg.validateSeats(seats); err != nil {
		log.Fatal("Invalid game configuration: ", err)
	}
	human, _ := humanSeat(seats)

	var store MemoryStore = newSQLiteMemoryStore(db)
	if cfg.MemoryDir != "" {
		fs, err := newFileMemoryStore(cfg.MemoryDir)
		if err != nil {
			log.Fatal("Failed to open memory dir: ", err)
		}
		store = fs
	}
	sinks := []TranscriptSink{newGameArchive(db)}
	if cfg.TranscriptDir != "" {
		sinks = append(sinks, fileTranscriptSink{dir: cfg.TranscriptDir})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hub *Hub
	if cfg.SpectatorAddr != "" {
		hub = newHub()
		hub.start()
		defer hub.stop()
		srv := &http.Server{Addr: cfg.SpectatorAddr, Handler: spectatorHandler(hub)}
		go func() {
			log.Printf("Spectator feed on %s (/ws, /transcript)", cfg.SpectatorAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logError("spectator server", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	pacer := &Pacer{
		Delay:        gameCfg.TurnDelay,
		AutoContinue: gameCfg.AutoContinue,
		Signals:      console.Signals(),
		Prompt:       func(msg string) { fmt.Println(msg) },
	}
	narrator := newNarrator(cfg)

	for i := 1; i <= cfg.Games; i++ {
		engine := &Engine{
			Config:       gameCfg,
			Seats:        seats,
			Memory:       store,
			Sinks:        sinks,
			Pacer:        pacer,
			Narrator:     narrator,
			ShuffleSeats: true,
		}
		if gameCfg.Seed != 0 {
			engine.Config.Seed = gameCfg.Seed + int64(i-1)
		}
		engine.Observers = []Observer{newConsoleObserver(os.Stdout, engine, human)}
		if hub != nil {
			engine.Observers = append(engine.Observers, hub)
		}

		g, err := engine.Run(ctx)
		if err != nil {
			if isConfigError(err) {
				log.Fatal("Invalid game configuration: ", err)
			}
			log.Printf("Game terminated by user: %v", err)
			return
		}
		log.Printf("Game %d/%d (%s) finished after %d days: %s wins", i, cfg.Games, g.ID, g.Day, winnerLabel(g.Winner))
	}
}
