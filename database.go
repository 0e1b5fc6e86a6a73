package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// GameRecord is one archived game.
type GameRecord struct {
	ID         string `db:"id"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
	Winner     string `db:"winner"` // mafia, town or "" for a draw
	Days       int    `db:"days"`
	Players    int    `db:"players"`
}

// GamePlayerRecord is one seat of an archived game.
type GamePlayerRecord struct {
	GameID     string `db:"game_id"`
	Seat       int    `db:"seat"`
	Name       string `db:"name"`
	Role       string `db:"role"`
	Team       string `db:"team"`
	Controller string `db:"controller"`
	Survived   bool   `db:"survived"`
	DeathDay   int    `db:"death_day"`
	DeathCause string `db:"death_cause"`
}

type gameEventRecord struct {
	GameID string `db:"game_id"`
	Event
}

func openDB(path string) (*sqlx.DB, error) {
	conn, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases shared
	conn.SetMaxOpenConns(1)
	if err := initDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func initDB(conn *sqlx.DB) error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS memory (
		name TEXT PRIMARY KEY,
		content TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS game (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		winner TEXT NOT NULL DEFAULT '',
		days INTEGER NOT NULL DEFAULT 0,
		players INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS game_player (
		game_id TEXT NOT NULL,
		seat INTEGER NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		team TEXT NOT NULL,
		controller TEXT NOT NULL,
		survived INTEGER NOT NULL DEFAULT 0,
		death_day INTEGER NOT NULL DEFAULT 0,
		death_cause TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (game_id) REFERENCES game(id),
		UNIQUE(game_id, seat)
	);
	CREATE TABLE IF NOT EXISTS game_event (
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		day INTEGER NOT NULL,
		phase TEXT NOT NULL,
		kind TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		target TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		visibility TEXT NOT NULL DEFAULT 'public',
		FOREIGN KEY (game_id) REFERENCES game(id),
		UNIQUE(game_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_game_player_name ON game_player(name);
	`
	_, err := conn.Exec(schema)
	if err != nil {
		log.Printf("initDB error: %v", err)
		return err
	}
	log.Printf("Database initialized successfully")
	return nil
}

// sqliteMemoryStore keeps one memory record per player name.
type sqliteMemoryStore struct {
	db *sqlx.DB
}

func newSQLiteMemoryStore(conn *sqlx.DB) *sqliteMemoryStore {
	return &sqliteMemoryStore{db: conn}
}

func (s *sqliteMemoryStore) Load(ctx context.Context, name string) (string, error) {
	var content string
	err := s.db.GetContext(ctx, &content, "SELECT content FROM memory WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load memory for %s: %w", name, err)
	}
	return content, nil
}

// Save replaces the record; older text is never kept.
func (s *sqliteMemoryStore) Save(ctx context.Context, name, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory (name, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		name, text, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save memory for %s: %w", name, err)
	}
	return nil
}

// gameArchive stores finished games for the -stats report.
type gameArchive struct {
	db      *sqlx.DB
	started time.Time
}

func newGameArchive(conn *sqlx.DB) *gameArchive {
	return &gameArchive{db: conn, started: time.Now()}
}

// WriteTranscript archives the game, its seats and the full event log in one
// transaction.
func (a *gameArchive) WriteTranscript(g *Game) error {
	tx, err := a.db.Beginx()
	if err != nil {
		return fmt.Errorf("archive %s: begin: %w", g.ID, err)
	}
	defer tx.Rollback()

	rec := GameRecord{
		ID:         g.ID,
		StartedAt:  a.started.UTC().Format(time.RFC3339),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
		Winner:     string(g.Winner),
		Days:       g.Day,
		Players:    len(g.Players),
	}
	if _, err := tx.NamedExec(`
		INSERT INTO game (id, started_at, finished_at, winner, days, players)
		VALUES (:id, :started_at, :finished_at, :winner, :days, :players)`, rec); err != nil {
		return fmt.Errorf("archive %s: game: %w", g.ID, err)
	}

	for _, p := range g.Players {
		pr := GamePlayerRecord{
			GameID:     g.ID,
			Seat:       p.Seat,
			Name:       p.Name,
			Role:       string(p.Role()),
			Team:       string(p.Role().Team()),
			Controller: string(p.Controller),
			Survived:   p.Alive,
			DeathDay:   p.DeathDay,
			DeathCause: string(p.DeathCause),
		}
		if _, err := tx.NamedExec(`
			INSERT INTO game_player (game_id, seat, name, role, team, controller, survived, death_day, death_cause)
			VALUES (:game_id, :seat, :name, :role, :team, :controller, :survived, :death_day, :death_cause)`, pr); err != nil {
			return fmt.Errorf("archive %s: player %s: %w", g.ID, p.Name, err)
		}
	}

	for _, e := range g.Log.Events() {
		if _, err := tx.NamedExec(`
			INSERT INTO game_event (game_id, seq, day, phase, kind, actor, target, content, visibility)
			VALUES (:game_id, :seq, :day, :phase, :kind, :actor, :target, :content, :visibility)`,
			gameEventRecord{GameID: g.ID, Event: e}); err != nil {
			return fmt.Errorf("archive %s: event %d: %w", g.ID, e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive %s: commit: %w", g.ID, err)
	}
	a.started = time.Now()
	log.Printf("Archived game %s (%d events)", g.ID, g.Log.Len())
	return nil
}

// loadGameEvents returns an archived game's log in order.
func loadGameEvents(conn *sqlx.DB, gameID string) ([]Event, error) {
	var events []Event
	err := conn.Select(&events, `
		SELECT seq, day, phase, kind, actor, target, content, visibility
		FROM game_event WHERE game_id = ? ORDER BY seq`, gameID)
	return events, err
}
