package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// TranscriptSink receives the finished game once. Sinks read the log, they
// never change it.
type TranscriptSink interface {
	WriteTranscript(g *Game) error
}

// fileTranscriptSink writes <dir>/<game id>/public.log and full.log.
type fileTranscriptSink struct {
	dir string
}

func (s fileTranscriptSink) WriteTranscript(g *Game) error {
	dir := filepath.Join(s.dir, g.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("transcript dir: %w", err)
	}
	events := g.Log.Events()
	header := transcriptHeader(g)

	public := header + formatEvents(PublicView(events))
	if err := os.WriteFile(filepath.Join(dir, "public.log"), []byte(public), 0644); err != nil {
		return fmt.Errorf("public transcript: %w", err)
	}
	full := header + formatEvents(FullView(events))
	if err := os.WriteFile(filepath.Join(dir, "full.log"), []byte(full), 0644); err != nil {
		return fmt.Errorf("full transcript: %w", err)
	}
	log.Printf("Transcripts written to %s", dir)
	return nil
}

func transcriptHeader(g *Game) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s\n", g.ID)
	fmt.Fprintf(&b, "Players: %s\n", strings.Join(playerNames(g.Players), ", "))
	fmt.Fprintf(&b, "Winner: %s after %d days\n\n", winnerLabel(g.Winner), g.Day)
	return b.String()
}

func playerNames(players []*Player) []string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}
	return names
}
