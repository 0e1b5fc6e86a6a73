package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
)

// Observer is notified synchronously of every event appended to the log, in
// order. Observers must not block for long: the game waits for them.
type Observer interface {
	OnEvent(e Event)
}

// Engine drives one game from setup to reflection. The engine is the only
// writer of game state; agents and observers only ever receive copies.
type Engine struct {
	Config    GameConfig
	Seats     []Seat
	Memory    MemoryStore // nil = no cross-game memory
	Sinks     []TranscriptSink
	Observers []Observer
	Pacer     *Pacer   // nil = no pacing
	Narrator  Narrator // nil = no narration

	// ShuffleSeats deals seats in random order instead of roster order.
	ShuffleSeats bool

	game  *Game
	turns int
}

// Run plays a complete game. The only errors are setup errors (always a
// *ConfigError, raised before the first turn) and cancellation of ctx.
// Agent failures never abort the game.
func (e *Engine) Run(ctx context.Context) (*Game, error) {
	seed := e.Config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	seats := make([]Seat, len(e.Seats))
	copy(seats, e.Seats)
	if e.ShuffleSeats {
		rng.Shuffle(len(seats), func(i, j int) { seats[i], seats[j] = seats[j], seats[i] })
	}

	g, err := newGame(e.Config, seats, rng)
	if err != nil {
		return nil, err
	}
	g.observers = e.Observers
	e.game = g
	e.turns = 0

	log.Printf("Game %s: %d players, %s, seed=%d", g.ID, len(g.Players), e.Config, seed)
	e.setup(ctx)

	for !g.Over {
		if err := ctx.Err(); err != nil {
			log.Printf("Game %s terminated on day %d: %v", g.ID, g.Day, err)
			return g, err
		}
		if g.Day >= e.Config.MaxDays {
			e.endGame(TeamNone, fmt.Sprintf("The game reached the limit of %d days. Nobody wins.", e.Config.MaxDays))
			break
		}
		g.Day++
		e.runDay(ctx)
		if g.Over {
			break
		}
		if err := ctx.Err(); err != nil {
			return g, err
		}
		e.runNight(ctx)
	}
	if err := ctx.Err(); err != nil {
		return g, err
	}

	e.revealAll()
	if e.Config.MemoryEnabled && e.Memory != nil {
		e.reflect(ctx)
	}
	for _, sink := range e.Sinks {
		if err := sink.WriteTranscript(g); err != nil {
			logError("Run: write transcript", err)
		}
	}
	LogDBState("after game " + g.ID)
	return g, nil
}

// Game returns the game currently or last driven by the engine.
func (e *Engine) Game() *Game { return e.game }

// setup announces the table, tells every player their role and loads memories.
func (e *Engine) setup(ctx context.Context) {
	g := e.game
	g.emit(EventSystem, SystemActor, "",
		fmt.Sprintf("A new game begins with %d players: %s. %d of them are Mafia.",
			len(g.Players), strings.Join(g.livingNames(), ", "), e.Config.MafiaCount),
		VisibilityPublic)

	var mafia []string
	for _, p := range g.LivingWithRole(RoleMafia) {
		mafia = append(mafia, p.Name)
	}
	g.emit(EventSystem, SystemActor, "", "The Mafia are: "+strings.Join(mafia, ", ")+".", VisibilityTeamMafia)

	for _, p := range g.Players {
		g.emit(EventSystem, SystemActor, p.Name, fmt.Sprintf("You are %s. Your role is %s.", p.Name, p.Role()), VisibilityPlayer(p.Name))
		if e.Config.MemoryEnabled && e.Memory != nil {
			mem, err := e.Memory.Load(ctx, p.Name)
			if err != nil {
				logError("setup: load memory for "+p.Name, err)
				continue
			}
			p.Memory = mem
		}
	}
}

// takeTurn asks one player for one action. Every failure (timeout, provider
// error, unparseable output) becomes an empty Turn, which means silence or
// an abstain. Notes are stored as private memory-note events.
func (e *Engine) takeTurn(ctx context.Context, p *Player, kind TurnKind, instruction string) Turn {
	if e.Pacer != nil {
		if err := e.Pacer.Wait(ctx); err != nil {
			return Turn{}
		}
	}
	if ctx.Err() != nil {
		return Turn{}
	}

	e.turns++
	tc := e.turnContext(p, kind, instruction)

	timeout := e.Config.TurnTimeout
	if p.Controller == ControllerHuman {
		timeout = e.Config.HumanTimeout
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var t Turn
	var err error
	switch kind {
	case TurnVote:
		t, err = p.agent.Vote(callCtx, tc)
	case TurnNight:
		t, err = p.agent.NightAction(callCtx, tc)
	default:
		t, err = p.agent.Speak(callCtx, tc)
	}
	if err != nil {
		log.Printf("Turn %d: %s (%s) failed, treating as abstain: %v", e.turns, p.Name, kind, err)
		return Turn{}
	}
	DebugLog("takeTurn", "turn %d %s %s took %s", e.turns, p.Name, kind, time.Since(start).Round(time.Millisecond))

	t.Notes = strings.TrimSpace(t.Notes)
	t.Speech = strings.TrimSpace(t.Speech)
	t.Target = strings.TrimSpace(t.Target)
	if t.Notes != "" {
		e.game.emit(EventMemoryNote, p.Name, "", t.Notes, VisibilityPlayer(p.Name))
	}
	return t
}

// turnContext builds what a player may know right now.
func (e *Engine) turnContext(p *Player, kind TurnKind, instruction string) TurnContext {
	g := e.game
	var partners []string
	if p.Role() == RoleMafia {
		for _, m := range g.LivingWithRole(RoleMafia) {
			if m.Name != p.Name {
				partners = append(partners, m.Name)
			}
		}
	}
	dead := make([]Death, 0, len(g.Deaths))
	for _, d := range g.Deaths {
		if !e.Config.RevealRoleOnDeath {
			d.Role = ""
		}
		dead = append(dead, d)
	}
	return TurnContext{
		GameID:      g.ID,
		Self:        p.Name,
		Role:        p.Role(),
		Partners:    partners,
		Kind:        kind,
		Day:         g.Day,
		Phase:       g.Phase,
		Living:      g.livingNames(),
		Dead:        dead,
		Defendant:   g.Defendant,
		View:        View(g.Log.Events(), p.viewer()),
		Memory:      p.Memory,
		Instruction: instruction,
		PlayerCount: len(g.Players),
		MafiaCount:  e.Config.MafiaCount,
		CopCount:    e.Config.CopCount,
		TurnNumber:  e.turns,
	}
}

// narrate appends a short story to the public log. Narration is decoration:
// failures are logged and the game goes on.
func (e *Engine) narrate(ctx context.Context, what string) {
	if e.Narrator == nil || ctx.Err() != nil {
		return
	}
	var history []string
	for _, ev := range PublicView(e.game.Log.Events()) {
		history = append(history, formatEvent(ev))
	}
	nctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	story, err := e.Narrator.Tell(nctx, history, what)
	if err != nil {
		log.Printf("Narrator: %v", err)
		return
	}
	if story = strings.TrimSpace(story); story != "" {
		e.game.emit(EventNarration, "Narrator", "", story, VisibilityPublic)
	}
}
