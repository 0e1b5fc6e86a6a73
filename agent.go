package main

import (
	"context"
	"fmt"
	"strings"
)

// TurnKind is what the engine is asking a player for.
type TurnKind string

const (
	TurnSpeech    TurnKind = "speech"
	TurnDefense   TurnKind = "defense"
	TurnLastWords TurnKind = "last_words"
	TurnVote      TurnKind = "vote"
	TurnNight     TurnKind = "night"
)

// TurnContext is everything a player is allowed to know when acting. View is
// already filtered for the player.
type TurnContext struct {
	GameID      string
	Self        string
	Role        Role
	Partners    []string // living fellow Mafia, empty for Town
	Kind        TurnKind
	Day         int
	Phase       Phase
	Living      []string
	Dead        []Death // role is blank unless it was revealed
	Defendant   string
	View        []Event
	Memory      string
	Instruction string
	PlayerCount int
	MafiaCount  int
	CopCount    int
	TurnNumber  int
}

// Turn is a player's structured answer. Target is a player name, NotGuilty,
// or empty for an abstain.
type Turn struct {
	Notes  string `json:"notes"`
	Speech string `json:"speech"`
	Target string `json:"vote"`
}

// ReflectionContext is handed to every player once the game is over.
type ReflectionContext struct {
	GameID   string
	Self     string
	Role     Role
	Winner   Team
	Survived bool
	FullLog  []Event
	Memory   string
	WordCap  int
}

// Agent is the capability surface the engine drives. The state machine calls
// it the same way for AI and human players.
type Agent interface {
	Speak(ctx context.Context, tc TurnContext) (Turn, error)
	Vote(ctx context.Context, tc TurnContext) (Turn, error)
	NightAction(ctx context.Context, tc TurnContext) (Turn, error)
	Reflect(ctx context.Context, rc ReflectionContext) (string, error)
}

// formatEvent renders one log line as players and transcripts see it.
func formatEvent(e Event) string {
	tag := string(e.Phase)
	if tag != "" {
		tag = strings.ToUpper(tag[:1]) + tag[1:]
	}
	secret := ""
	switch {
	case e.Visibility == VisibilityTeamMafia:
		secret = "(Mafia) "
	case strings.HasPrefix(string(e.Visibility), visibilityRolePrefix):
		secret = "(" + strings.TrimPrefix(string(e.Visibility), visibilityRolePrefix) + " only) "
	case strings.HasPrefix(string(e.Visibility), visibilityPlayerPrefix):
		secret = "(private) "
	case e.Visibility == VisibilityPostGame:
		secret = "(post-game) "
	}
	body := e.Content
	switch e.Kind {
	case EventNomination:
		body = fmt.Sprintf("[Nominated %s]", e.Target)
	case EventVote:
		if e.Target == "" {
			body = "[Abstained]"
		} else {
			body = fmt.Sprintf("[Vote: %s]", e.Target)
		}
		if e.Content != "" {
			body += " " + e.Content
		}
	case EventWhisper:
		if e.Target != "" {
			body = fmt.Sprintf("[Suggests %s] %s", e.Target, e.Content)
		}
	case EventNightAction:
		if e.Target != "" {
			body = fmt.Sprintf("[Targets %s] %s", e.Target, e.Content)
		}
	}
	return fmt.Sprintf("[Day %d %s] %s%s: %s", e.Day, tag, secret, e.Actor, strings.TrimSpace(body))
}

func formatEvents(events []Event) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString(formatEvent(e))
		b.WriteString("\n")
	}
	return b.String()
}

// limitWords cuts text to at most n words. n <= 0 means no limit.
func limitWords(text string, n int) string {
	words := strings.Fields(text)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}
