package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	phaseStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	speakerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	secretStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	deathStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	narrationStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("13"))
	voteStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	noteStyle      = lipgloss.NewStyle().Faint(true)
)

// consoleObserver prints the live game. With a human seated it only shows
// what that human may see, plus the post-game reveals once the game is over.
type consoleObserver struct {
	out    io.Writer
	engine *Engine
	human  string // "" = spectator mode, everything is shown
	day    int
	phase  Phase
}

func newConsoleObserver(out io.Writer, engine *Engine, human string) *consoleObserver {
	return &consoleObserver{out: out, engine: engine, human: human}
}

func (c *consoleObserver) visible(e Event) bool {
	if c.human == "" {
		return true
	}
	g := c.engine.Game()
	if e.Visibility == VisibilityPostGame {
		// roles of the dead stay hidden until the game is over
		return g != nil && g.Over
	}
	if g == nil {
		return e.Visibility == VisibilityPublic
	}
	p := g.player(c.human)
	if p == nil {
		return e.Visibility == VisibilityPublic
	}
	return canSeeEvent(e, p.viewer())
}

func (c *consoleObserver) OnEvent(e Event) {
	if !c.visible(e) {
		return
	}
	if e.Day != c.day || (e.Phase != c.phase && (e.Phase == PhaseNight || e.Phase == PhaseDay || e.Phase == PhaseGameOver)) {
		c.day, c.phase = e.Day, e.Phase
		header := fmt.Sprintf("── %s %d ──", strings.ToUpper(string(e.Phase)), e.Day)
		if e.Phase == PhaseSetup {
			header = "── SETUP ──"
		}
		fmt.Fprintln(c.out, "\n"+phaseStyle.Render(header))
	}
	fmt.Fprintln(c.out, renderEvent(e))
}

func renderEvent(e Event) string {
	marker := ""
	if e.Visibility != VisibilityPublic {
		marker = secretStyle.Render("["+string(e.Visibility)+"] ")
	}
	switch e.Kind {
	case EventSpeech, EventWhisper:
		line := speakerStyle.Render(e.Actor) + ": " + e.Content
		if e.Kind == EventWhisper && e.Target != "" {
			line += voteStyle.Render(" → " + e.Target)
		}
		return marker + line
	case EventNomination:
		return marker + voteStyle.Render(fmt.Sprintf("%s nominates %s", e.Actor, e.Target))
	case EventVote:
		choice := "abstains"
		switch e.Target {
		case "":
		case NotGuilty:
			choice = "votes innocent"
		default:
			choice = "votes guilty"
		}
		line := voteStyle.Render(e.Actor + " " + choice)
		if e.Content != "" {
			line += ": " + e.Content
		}
		return marker + line
	case EventDeath, EventRoleReveal:
		return marker + deathStyle.Render(e.Content)
	case EventNarration:
		return marker + narrationStyle.Render(e.Content)
	case EventMemoryNote:
		return marker + noteStyle.Render(e.Actor+" notes: "+e.Content)
	case EventNightAction, EventInvestigation:
		return marker + formatEvent(e)
	default:
		return marker + systemStyle.Render(e.Content)
	}
}
