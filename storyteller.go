package main

import (
	"context"
	"log"
	"strings"
)

const narratorSystemPrompt = `You are the narrator of a Mafia game set in a small 1930s town. When a player dies, you tell a short atmospheric story about their fate. Keep it to 2-3 sentences. Never reveal anything that is not in the history.`

// Narrator tells a short story after a death. It only ever sees public events.
type Narrator interface {
	Tell(ctx context.Context, history []string, what string) (string, error)
}

type llmNarrator struct {
	completer Completer
}

func (n *llmNarrator) Tell(ctx context.Context, history []string, what string) (string, error) {
	prompt := "Game history so far:\n" + strings.Join(history, "\n") +
		"\n\nWhat just happened: " + what +
		"\n\nTell a short dramatic story (2-3 sentences) about it."
	text, err := n.completer.Complete(ctx, narratorSystemPrompt, prompt)
	return strings.TrimSpace(text), err
}

// newNarrator returns nil when no narrator provider is configured.
func newNarrator(cfg AppConfig) Narrator {
	if cfg.NarratorProvider == "" {
		log.Printf("Narrator: disabled (set narrator_provider to enable)")
		return nil
	}
	c, err := newLangchainCompleter(cfg, cfg.NarratorProvider, cfg.NarratorModel)
	if err != nil {
		log.Printf("Narrator: %v", err)
		return nil
	}
	log.Printf("Narrator: %s model=%s", cfg.NarratorProvider, cfg.NarratorModel)
	return &llmNarrator{completer: c}
}
