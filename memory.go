package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// MemoryStore persists one bounded text record per player identity.
// Save overwrites; nothing is ever appended.
type MemoryStore interface {
	Load(ctx context.Context, name string) (string, error)
	Save(ctx context.Context, name, text string) error
}

// Reflect asks every player, dead or alive, for a new memory record based on
// the full game log and their previous record. Returned summaries are cut to
// wordCap words and saved, replacing the old record. A player whose agent
// fails keeps the old record and is missing from the result. The notes are
// logged in the reflection phase; the game's own phase is left as it was.
func Reflect(ctx context.Context, g *Game, store MemoryStore, wordCap int, timeout time.Duration) map[string]string {
	final := g.Phase
	g.Phase = PhaseReflection
	defer func() { g.Phase = final }()
	full := FullView(g.Log.Events())
	out := make(map[string]string)

	for _, p := range g.Players {
		if ctx.Err() != nil {
			break
		}
		rc := ReflectionContext{
			GameID:   g.ID,
			Self:     p.Name,
			Role:     p.Role(),
			Winner:   g.Winner,
			Survived: p.Alive,
			FullLog:  full,
			Memory:   p.Memory,
			WordCap:  wordCap,
		}
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		summary, err := p.agent.Reflect(callCtx, rc)
		cancel()
		if err != nil {
			log.Printf("Reflect: %s failed, keeping previous memory: %v", p.Name, err)
			continue
		}
		summary = limitWords(summary, wordCap)
		if summary == "" {
			log.Printf("Reflect: %s returned nothing, keeping previous memory", p.Name)
			continue
		}
		if err := store.Save(ctx, p.Name, summary); err != nil {
			logError("Reflect: save "+p.Name, err)
			continue
		}
		out[p.Name] = summary
		g.emit(EventMemoryNote, p.Name, "", summary, VisibilityPostGame)
		DebugLog("Reflect", "'%s' memory updated (%d words)", p.Name, len(strings.Fields(summary)))
	}
	return out
}

func (e *Engine) reflect(ctx context.Context) {
	updated := Reflect(ctx, e.game, e.Memory, e.Config.MemoryWordCap, e.Config.TurnTimeout)
	log.Printf("Reflection done: %d of %d memories updated", len(updated), len(e.game.Players))
}

// fileMemoryStore keeps one <name>.txt per player in dir.
type fileMemoryStore struct {
	dir string
}

func newFileMemoryStore(dir string) (*fileMemoryStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("memory dir %s: %w", dir, err)
	}
	return &fileMemoryStore{dir: dir}, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *fileMemoryStore) path(name string) string {
	return filepath.Join(s.dir, unsafeFileChars.ReplaceAllString(name, "_")+".txt")
}

func (s *fileMemoryStore) Load(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load memory for %s: %w", name, err)
	}
	return string(data), nil
}

// Save writes to a temp file and renames it so a crash never leaves a
// half-written record.
func (s *fileMemoryStore) Save(_ context.Context, name, text string) error {
	tmp, err := os.CreateTemp(s.dir, ".memory-*")
	if err != nil {
		return fmt.Errorf("save memory for %s: %w", name, err)
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save memory for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save memory for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save memory for %s: %w", name, err)
	}
	return nil
}
