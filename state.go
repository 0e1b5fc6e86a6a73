package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleMafia    Role = "Mafia"
	RoleCop      Role = "Cop"
	RoleVillager Role = "Villager"
)

type Team string

const (
	TeamNone  Team = ""
	TeamMafia Team = "mafia"
	TeamTown  Team = "town"
)

// Team returns the role-group a role plays for.
func (r Role) Team() Team {
	if r == RoleMafia {
		return TeamMafia
	}
	return TeamTown
}

// parseRole accepts a roster role preference. "random" and "" mean no preference.
func parseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "random":
		return "", nil
	case "mafia":
		return RoleMafia, nil
	case "cop":
		return RoleCop, nil
	case "villager":
		return RoleVillager, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidRoleConfig, s)
}

type Controller string

const (
	ControllerAI    Controller = "ai"
	ControllerHuman Controller = "human"
)

type DeathCause string

const (
	CauseLynch     DeathCause = "lynch"
	CauseNightKill DeathCause = "night_kill"
)

// Player is one seat at the table. The role is written once by assignRoles
// and only readable afterwards.
type Player struct {
	Seat       int
	Name       string
	Controller Controller
	Alive      bool
	Memory     string // prior memory record, copied in at setup
	DeathDay   int
	DeathCause DeathCause

	role  Role
	agent Agent
}

func (p *Player) Role() Role { return p.role }

// Death records who died, when and how, in the order deaths happened.
type Death struct {
	Name  string
	Role  Role
	Cause DeathCause
	Day   int
}

// Seat describes a player before roles are dealt.
type Seat struct {
	Name       string
	Controller Controller
	Preference Role // "" = random
	Agent      Agent
}

// Game is the state of one game. It owns its players and its event log for
// the game's lifetime; only the turn loop mutates it.
type Game struct {
	ID        string
	Day       int
	Phase     Phase
	Players   []*Player
	Deaths    []Death
	Log       *EventLog
	Defendant string
	Tally     Tally
	Winner    Team
	Over      bool

	cfg       GameConfig
	observers []Observer
}

// newGame seats the players in the given order and deals roles.
func newGame(cfg GameConfig, seats []Seat, rng *rand.Rand) (*Game, error) {
	if err := cfg.validateSeats(seats); err != nil {
		return nil, err
	}
	pool := buildRolePool(len(seats), cfg)
	prefs := make([]Role, len(seats))
	for i, s := range seats {
		prefs[i] = s.Preference
	}
	roles := assignRoles(prefs, pool, rng)

	g := &Game{
		ID:    uuid.NewString(),
		Phase: PhaseSetup,
		Log:   NewEventLog(),
		cfg:   cfg,
	}
	for i, s := range seats {
		g.Players = append(g.Players, &Player{
			Seat:       i + 1,
			Name:       s.Name,
			Controller: s.Controller,
			Alive:      true,
			role:       roles[i],
			agent:      s.Agent,
		})
	}
	return g, nil
}

// buildRolePool returns the multiset of roles for n players.
func buildRolePool(n int, cfg GameConfig) []Role {
	var pool []Role
	for i := 0; i < cfg.MafiaCount; i++ {
		pool = append(pool, RoleMafia)
	}
	for i := 0; i < cfg.CopCount; i++ {
		pool = append(pool, RoleCop)
	}
	for len(pool) < n {
		pool = append(pool, RoleVillager)
	}
	return pool
}

// assignRoles honours role preferences while the pool still holds that role,
// then deals the rest of the shuffled pool to everyone else in seat order.
func assignRoles(prefs []Role, pool []Role, rng *rand.Rand) []Role {
	remaining := make([]Role, len(pool))
	copy(remaining, pool)
	shuffleRoles(remaining, rng)

	take := func(r Role) bool {
		for i, have := range remaining {
			if have == r {
				remaining = append(remaining[:i], remaining[i+1:]...)
				return true
			}
		}
		return false
	}

	roles := make([]Role, len(prefs))
	for i, pref := range prefs {
		if pref != "" && take(pref) {
			roles[i] = pref
		}
	}
	for i := range roles {
		if roles[i] == "" {
			roles[i] = remaining[0]
			remaining = remaining[1:]
		}
	}
	return roles
}

// shuffleRoles shuffles the role pool with the game's seeded source.
func shuffleRoles(roles []Role, rng *rand.Rand) {
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})
}

func (g *Game) player(name string) *Player {
	for _, p := range g.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Living returns living players in seat order.
func (g *Game) Living() []*Player {
	var out []*Player
	for _, p := range g.Players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// LivingWithRole returns living players holding the role, in seat order.
func (g *Game) LivingWithRole(r Role) []*Player {
	var out []*Player
	for _, p := range g.Living() {
		if p.Role() == r {
			out = append(out, p)
		}
	}
	return out
}

func (g *Game) teamCounts() (mafia, town int) {
	for _, p := range g.Living() {
		if p.Role().Team() == TeamMafia {
			mafia++
		} else {
			town++
		}
	}
	return mafia, town
}

func (g *Game) livingNames() []string {
	var names []string
	for _, p := range g.Living() {
		names = append(names, p.Name)
	}
	return names
}

// speakingOrder rotates the living seat order by one position per day, so a
// different player opens each day.
func (g *Game) speakingOrder() []*Player {
	living := g.Living()
	if len(living) == 0 {
		return nil
	}
	offset := (g.Day - 1) % len(living)
	if offset < 0 {
		offset = 0
	}
	order := make([]*Player, 0, len(living))
	order = append(order, living[offset:]...)
	order = append(order, living[:offset]...)
	return order
}

// resolveTarget maps raw agent output onto a living player. Anything that
// doesn't name exactly one living player is an abstain.
func (g *Game) resolveTarget(raw string) (*Player, bool) {
	name := normalizeName(raw)
	if name == "" {
		return nil, false
	}
	for _, p := range g.Players {
		if strings.EqualFold(p.Name, name) {
			if !p.Alive {
				return nil, false
			}
			return p, true
		}
	}
	return nil, false
}

// normalizeName strips the decoration models like to put around names.
func normalizeName(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`*[]().")
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none", "nil", "skip", "abstain", "no one", "nobody", "pass":
		return ""
	}
	return s
}

// emit appends an event stamped with the current day and phase.
func (g *Game) emit(kind EventKind, actor, target, content string, vis Visibility) Event {
	e := g.Log.Append(Event{
		Day:        g.Day,
		Phase:      g.Phase,
		Kind:       kind,
		Actor:      actor,
		Target:     target,
		Content:    content,
		Visibility: vis,
	})
	for _, o := range g.observers {
		o.OnEvent(e)
	}
	return e
}
