package main

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const (
	daySpeechInstruction = `It is Day %d. Speak to the town: share suspicions, defend yourself, persuade. ` +
		`You may nominate one living player (not yourself) for trial by putting their exact name in "vote"; ` +
		`%d nominations put a player on trial. Use null to nominate nobody.`
	defenseInstruction   = `You are on trial. Give your defense to the town. Set "vote" to null.`
	trialVoteInstruction = `%s is on trial. Vote "guilty" to execute them, "innocent" to spare them, or null to abstain. You may add a short public remark in "speech".`
	lastWordsInstruction = `The town has voted to execute you. Say your last words. Set "vote" to null.`
	guiltyVote           = "guilty"
	innocentVote         = "innocent"
)

// runDay plays Day n: speeches with nominations, then at most one trial.
func (e *Engine) runDay(ctx context.Context) {
	g := e.game
	g.Phase = PhaseDay
	g.Defendant = ""
	g.Tally = Tally{}

	g.emit(EventSystem, SystemActor, "", fmt.Sprintf("Day %d begins. Alive: %s.", g.Day, strings.Join(g.livingNames(), ", ")), VisibilityPublic)
	if g.lastYouLynchOrLose() {
		g.emit(EventSystem, SystemActor, "", "LYLO: a wrong execution today hands the game to the Mafia.", VisibilityPublic)
	}
	log.Printf("Day %d started, %d players alive", g.Day, len(g.Living()))

	order := g.speakingOrder()
	nominations := make(map[string]int)
	var defendant *Player

	for _, p := range order {
		if ctx.Err() != nil {
			return
		}
		t := e.takeTurn(ctx, p, TurnSpeech, fmt.Sprintf(daySpeechInstruction, g.Day, g.cfg.NominationThreshold))
		g.emit(EventSpeech, p.Name, "", speechOrSilence(t.Speech), VisibilityPublic)

		if t.Target == "" {
			continue
		}
		nominee, ok := g.resolveTarget(t.Target)
		if !ok || nominee == p {
			log.Printf("Day %d: %s nominated %q, ignored", g.Day, p.Name, t.Target)
			continue
		}
		nominations[nominee.Name]++
		g.emit(EventNomination, p.Name, nominee.Name, "", VisibilityPublic)
		DebugLog("runDay", "'%s' nominated '%s' (%d/%d)", p.Name, nominee.Name, nominations[nominee.Name], g.cfg.NominationThreshold)

		if defendant == nil && nominations[nominee.Name] >= g.cfg.NominationThreshold {
			defendant = nominee
			g.Defendant = nominee.Name
			g.emit(EventSystem, SystemActor, nominee.Name, fmt.Sprintf("%s has been put on trial.", nominee.Name), VisibilityPublic)
		}
	}

	if defendant == nil {
		g.emit(EventSystem, SystemActor, "", "No one received enough nominations. There is no trial today.", VisibilityPublic)
		log.Printf("Day %d: no trial", g.Day)
		return
	}
	e.runTrial(ctx, defendant, order)
}

// runTrial hears the defense, collects verdicts and executes on a guilty
// verdict under the configured execution rule.
func (e *Engine) runTrial(ctx context.Context, defendant *Player, order []*Player) {
	g := e.game

	g.Phase = PhaseTrial
	t := e.takeTurn(ctx, defendant, TurnDefense, defenseInstruction)
	g.emit(EventSpeech, defendant.Name, "", speechOrSilence(t.Speech), VisibilityPublic)

	g.Phase = PhaseVoting
	var ballots []Ballot
	for _, p := range order {
		if ctx.Err() != nil {
			return
		}
		t := e.takeTurn(ctx, p, TurnVote, fmt.Sprintf(trialVoteInstruction, defendant.Name))
		target := parseVerdict(t.Target, defendant.Name)
		ballots = append(ballots, Ballot{Voter: p.Name, Target: target})
		g.emit(EventVote, p.Name, target, t.Speech, VisibilityPublic)
	}

	g.Tally = TallyVotes(ballots)
	living := len(g.Living())
	g.emit(EventSystem, SystemActor, defendant.Name, "Votes: "+g.Tally.String(), VisibilityPublic)

	name, executed := resolveExecution(g.Tally, living, g.cfg.ExecutionRule)
	if !executed {
		g.emit(EventSystem, SystemActor, defendant.Name, fmt.Sprintf("%s is spared.", defendant.Name), VisibilityPublic)
		log.Printf("Day %d: %s spared (%s)", g.Day, defendant.Name, g.Tally)
		return
	}
	log.Printf("Day %d: %s executed (%s)", g.Day, name, g.Tally)

	g.Phase = PhaseLastWords
	t = e.takeTurn(ctx, defendant, TurnLastWords, lastWordsInstruction)
	g.emit(EventSpeech, defendant.Name, "", speechOrSilence(t.Speech), VisibilityPublic)

	e.killPlayer(ctx, defendant, CauseLynch)
}

// parseVerdict maps a trial answer onto a ballot target. Naming the
// defendant counts as guilty; anything unrecognised is an abstain.
func parseVerdict(raw, defendant string) string {
	v := strings.ToLower(normalizeName(raw))
	switch v {
	case "":
		return ""
	case guiltyVote, "yes", "execute", "lynch", strings.ToLower(defendant):
		return defendant
	case innocentVote, NotGuilty, "no", "spare", "not_guilty":
		return NotGuilty
	}
	return ""
}

func speechOrSilence(s string) string {
	if s == "" {
		return "(stays silent)"
	}
	return s
}
