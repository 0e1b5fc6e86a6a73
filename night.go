package main

import (
	"context"
	"fmt"
	"log"
)

const (
	mafiaNightInstruction = `It is Night %d. Whisper to your fellow Mafia in "speech" and pick tonight's victim ` +
		`by putting the exact name of a living player in "vote". Use null to pass.`
	copNightInstruction = `It is Night %d. Choose one living player to investigate by putting their exact name in "vote". ` +
		`You will learn whether they are Mafia or Town. Use null to skip.`
)

type investigation struct {
	cop    *Player
	target *Player
}

// runNight collects every night submission first and only then resolves:
// investigations, then the kill.
func (e *Engine) runNight(ctx context.Context) {
	g := e.game
	g.Phase = PhaseNight
	g.Defendant = ""
	g.Tally = Tally{}

	g.emit(EventSystem, SystemActor, "", fmt.Sprintf("Night %d falls.", g.Day), VisibilityPublic)
	log.Printf("Night %d started", g.Day)

	mafia := g.LivingWithRole(RoleMafia)
	if len(mafia) > 0 {
		g.emit(EventSystem, SystemActor, "", "The Mafia wakes up...", VisibilityTeamMafia)
	}

	var ballots []Ballot
	for _, m := range mafia {
		if ctx.Err() != nil {
			return
		}
		t := e.takeTurn(ctx, m, TurnNight, fmt.Sprintf(mafiaNightInstruction, g.Day))
		target := ""
		if victim, ok := g.resolveTarget(t.Target); ok {
			target = victim.Name
		} else if t.Target != "" {
			log.Printf("Night %d: Mafia %s targeted %q, ignored", g.Day, m.Name, t.Target)
		}
		ballots = append(ballots, Ballot{Voter: m.Name, Target: target})
		g.emit(EventWhisper, m.Name, target, t.Speech, VisibilityTeamMafia)
	}

	var investigations []investigation
	for _, c := range g.LivingWithRole(RoleCop) {
		if ctx.Err() != nil {
			return
		}
		t := e.takeTurn(ctx, c, TurnNight, fmt.Sprintf(copNightInstruction, g.Day))
		target, ok := g.resolveTarget(t.Target)
		if !ok || target == c {
			if t.Target != "" {
				log.Printf("Night %d: Cop %s investigated %q, ignored", g.Day, c.Name, t.Target)
			}
			continue
		}
		investigations = append(investigations, investigation{cop: c, target: target})
		g.emit(EventNightAction, c.Name, target.Name, t.Speech, VisibilityPlayer(c.Name))
	}

	// All submissions are in. Investigations resolve before the kill lands.
	for _, inv := range investigations {
		result := "Town"
		if inv.target.Role().Team() == TeamMafia {
			result = "Mafia"
		}
		g.emit(EventInvestigation, SystemActor, inv.target.Name,
			fmt.Sprintf("%s is %s.", inv.target.Name, result), VisibilityRole(RoleCop))
		DebugLog("runNight", "Cop '%s' investigated '%s': %s", inv.cop.Name, inv.target.Name, result)
	}

	if len(mafia) == 0 {
		return
	}
	tally := TallyVotes(ballots)
	g.emit(EventSystem, SystemActor, "", "Mafia votes: "+tally.String(), VisibilityTeamMafia)

	victimName, ok := resolveNightKill(ballots, g.cfg.NightTieRule)
	if !ok {
		g.emit(EventSystem, SystemActor, "", "The Mafia could not agree on a victim.", VisibilityTeamMafia)
		g.emit(EventSystem, SystemActor, "", "The night passes quietly. Nobody died.", VisibilityPublic)
		log.Printf("Night %d: no kill (%s)", g.Day, tally)
		return
	}
	victim := g.player(victimName)
	if victim == nil || !victim.Alive {
		// ballots were validated above, a dead victim here means stale state
		log.Printf("Night %d: rejected kill on %q", g.Day, victimName)
		return
	}
	g.emit(EventNightAction, SystemActor, victim.Name,
		fmt.Sprintf("The Mafia chose %s.", victim.Name), VisibilityTeamMafia)
	e.killPlayer(ctx, victim, CauseNightKill)
}
