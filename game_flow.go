package main

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// killPlayer marks the player dead, announces the death and, depending on
// configuration, the role. The win condition is checked after every death.
func (e *Engine) killPlayer(ctx context.Context, p *Player, cause DeathCause) {
	g := e.game
	p.Alive = false
	p.DeathDay = g.Day
	p.DeathCause = cause
	g.Deaths = append(g.Deaths, Death{Name: p.Name, Role: p.Role(), Cause: cause, Day: g.Day})

	var msg string
	switch cause {
	case CauseLynch:
		msg = fmt.Sprintf("%s was executed by the town.", p.Name)
	default:
		msg = fmt.Sprintf("%s was found dead in the morning.", p.Name)
	}
	g.emit(EventDeath, SystemActor, p.Name, msg, VisibilityPublic)

	reveal := VisibilityPostGame
	if g.cfg.RevealRoleOnDeath {
		reveal = VisibilityPublic
	}
	g.emit(EventRoleReveal, SystemActor, p.Name, fmt.Sprintf("%s was %s.", p.Name, p.Role()), reveal)

	log.Printf("Day %d: %s (%s) died, cause: %s", g.Day, p.Name, p.Role(), cause)
	DebugLog("killPlayer", "'%s' died (%s), %d players left", p.Name, cause, len(g.Living()))

	e.narrate(ctx, msg)
	e.checkWinConditions()
}

// checkWinConditions checks if the game has ended and returns true if so
func (e *Engine) checkWinConditions() bool {
	g := e.game
	if g.Over {
		return true
	}
	mafia, town := g.teamCounts()
	log.Printf("Win check: %d mafia, %d town alive", mafia, town)

	// Town wins once every Mafia member is dead
	if mafia == 0 {
		log.Printf("TOWN WINS - all Mafia eliminated")
		e.endGame(TeamTown, "All Mafia members have been eliminated. The town wins!")
		return true
	}

	switch g.cfg.MafiaWinRule {
	case MafiaWinElimination:
		if town == 0 {
			log.Printf("MAFIA WINS - all town eliminated")
			e.endGame(TeamMafia, "The town has been wiped out. The Mafia wins!")
			return true
		}
	default:
		if mafia >= town {
			log.Printf("MAFIA WINS - parity reached (%d vs %d)", mafia, town)
			e.endGame(TeamMafia, "The Mafia now equals the town in number. The Mafia wins!")
			return true
		}
	}
	return false
}

// lastYouLynchOrLose reports whether a single wrong execution would hand the
// Mafia the game.
func (g *Game) lastYouLynchOrLose() bool {
	mafia, town := g.teamCounts()
	return mafia > 0 && mafia >= town-2
}

// endGame marks the game as finished with a winner. TeamNone is a draw.
func (e *Engine) endGame(winner Team, announcement string) {
	g := e.game
	g.Over = true
	g.Winner = winner
	g.Phase = PhaseGameOver
	g.Defendant = ""
	g.emit(EventSystem, SystemActor, "", announcement, VisibilityPublic)

	log.Printf("Game %s finished on day %d, winner: %s", g.ID, g.Day, winnerLabel(winner))
	DebugLog("endGame", "Game %s finished, winner: %s", g.ID, winnerLabel(winner))
}

// revealAll appends the post-game role reveals: every role, who survived and
// how the dead died.
func (e *Engine) revealAll() {
	g := e.game
	var lines []string
	for _, p := range g.Players {
		status := "survived"
		if !p.Alive {
			status = fmt.Sprintf("died on day %d (%s)", p.DeathDay, strings.ReplaceAll(string(p.DeathCause), "_", " "))
		}
		lines = append(lines, fmt.Sprintf("%s was %s, %s", p.Name, p.Role(), status))
		g.emit(EventRoleReveal, SystemActor, p.Name, fmt.Sprintf("%s was %s.", p.Name, p.Role()), VisibilityPostGame)
	}
	g.emit(EventSystem, SystemActor, "", "Final roles: "+strings.Join(lines, "; "), VisibilityPostGame)
}

func winnerLabel(t Team) string {
	switch t {
	case TeamMafia:
		return "Mafia"
	case TeamTown:
		return "Town"
	}
	return "nobody (draw)"
}
