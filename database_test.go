package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// playTownWin runs the six player game where the only Mafia, A, is executed on Day 1.
func playTownWin(t *testing.T, sinks ...TranscriptSink) *Game {
	t.Helper()
	tt := newTestTable([]string{"A", "B", "C", "D", "E", "F"}, map[string]Role{"A": RoleMafia, "B": RoleCop})
	tt.nominate(1, "A", "B", "C")
	tt.vote(1, "guilty", "B", "C", "D", "E", "F")
	cfg := testGameConfig()
	cfg.MafiaCount = 1
	return runTestGame(t, &Engine{Config: cfg, Seats: tt.seats, Sinks: sinks})
}

func TestArchiveAndStats(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.cleanup()
	ctx.logger.Debug("=== Testing game archive and stats ===")

	archive := newGameArchive(ctx.db)
	g := playTownWin(t, archive)
	ctx.logger.LogDB("after archive")

	events, err := loadGameEvents(ctx.db, g.ID)
	if err != nil {
		t.Fatalf("loadGameEvents: %v", err)
	}
	if len(events) != g.Log.Len() {
		t.Fatalf("Archived %d events, log has %d", len(events), g.Log.Len())
	}
	for i, e := range g.Log.Events() {
		if events[i] != e {
			t.Fatalf("Archived event %d differs:\n got %+v\nwant %+v", i, events[i], e)
		}
	}

	s, err := queryStats(ctx.db)
	if err != nil {
		t.Fatalf("queryStats: %v", err)
	}
	if s.Games != 1 || s.TownWins != 1 || s.MafiaWins != 0 || s.AvgDays != 1 {
		t.Errorf("Unexpected game stats: %+v", s)
	}
	if len(s.Players) != 6 {
		t.Fatalf("Expected 6 player rows, got %d", len(s.Players))
	}
	for _, p := range s.Players {
		switch p.Name {
		case "A":
			if p.Wins != 0 || p.Survived != 0 || p.MafiaPlay != 1 {
				t.Errorf("A lost as Mafia: %+v", p)
			}
		default:
			if p.Wins != 1 || p.Survived != 1 {
				t.Errorf("%s won and survived: %+v", p.Name, p)
			}
		}
	}

	var out bytes.Buffer
	printStats(&out, s)
	if !strings.Contains(out.String(), "Town wins: 1 (100%)") {
		t.Errorf("Unexpected report:\n%s", out.String())
	}
}

func TestEmptyStats(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.cleanup()

	s, err := queryStats(ctx.db)
	if err != nil {
		t.Fatalf("queryStats: %v", err)
	}
	var out bytes.Buffer
	printStats(&out, s)
	if strings.TrimSpace(out.String()) != "No archived games yet." {
		t.Errorf("got %q", out.String())
	}
}

func TestFileTranscripts(t *testing.T) {
	dir := t.TempDir()
	g := playTownWin(t, fileTranscriptSink{dir: dir})

	public, err := os.ReadFile(filepath.Join(dir, g.ID, "public.log"))
	if err != nil {
		t.Fatal(err)
	}
	full, err := os.ReadFile(filepath.Join(dir, g.ID, "full.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(public), "Winner: Town after 1 days") {
		t.Errorf("Header missing:\n%s", public)
	}
	if strings.Contains(string(public), "Your role is") || strings.Contains(string(public), "(post-game)") {
		t.Errorf("Public transcript leaks secrets:\n%s", public)
	}
	for _, want := range []string{"(Mafia)", "You are B. Your role is Cop.", "Final roles:"} {
		if !strings.Contains(string(full), want) {
			t.Errorf("Full transcript lacks %q", want)
		}
	}
}
