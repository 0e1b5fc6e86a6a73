package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RosterEntry is one line-up entry of roster.yaml.
type RosterEntry struct {
	Name     string `yaml:"name"`
	Active   *bool  `yaml:"active"` // nil = active
	UseCLI   bool   `yaml:"use_cli"`
	Provider string `yaml:"provider"` // openai, anthropic, google, ollama, groq, openrouter, xai, openai-compatible, human
	Model    string `yaml:"model"`
	Role     string `yaml:"role"` // random, mafia, cop, villager
}

type rosterFile struct {
	Players []RosterEntry `yaml:"players"`
}

func (r RosterEntry) active() bool { return r.Active == nil || *r.Active }

func loadRoster(path string) ([]RosterEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "roster", Err: fmt.Errorf("%w: %v", ErrNoRoster, err)}
	}
	return parseRoster(data)
}

func parseRoster(data []byte) ([]RosterEntry, error) {
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, configErr("roster", ErrNoRoster, "parse: %v", err)
	}
	var active []RosterEntry
	for _, e := range f.Players {
		if e.active() {
			active = append(active, e)
		}
	}
	if len(active) == 0 {
		return nil, &ConfigError{Field: "roster", Err: ErrNoRoster}
	}
	return active, nil
}

// buildSeats creates one agent per active roster entry. Any provider that
// can't be set up is a configuration error.
func buildSeats(cfg AppConfig, roster []RosterEntry, in *consoleInput, out io.Writer) ([]Seat, error) {
	var seats []Seat
	for _, e := range roster {
		pref, err := parseRole(e.Role)
		if err != nil {
			return nil, &ConfigError{Field: "roster." + e.Name + ".role", Err: err}
		}
		seat := Seat{Name: e.Name, Controller: ControllerAI, Preference: pref}

		switch {
		case e.Provider == "human":
			if in == nil {
				return nil, configErr("roster."+e.Name, ErrUnknownProvider, "human player needs a console")
			}
			seat.Controller = ControllerHuman
			seat.Agent = newHumanAgent(e.Name, in, out)
		case e.UseCLI:
			c, err := newCLICompleter(e.Provider, e.Model, time.Duration(cfg.TurnTimeoutS)*time.Second, cfg.RequestsPerMinute)
			if err != nil {
				return nil, &ConfigError{Field: "roster." + e.Name, Err: err}
			}
			seat.Agent = newLLMAgent(e.Name, c, cfg.MaxRetries)
		default:
			c, err := newLangchainCompleter(cfg, e.Provider, e.Model)
			if err != nil {
				return nil, &ConfigError{Field: "roster." + e.Name, Err: err}
			}
			seat.Agent = newLLMAgent(e.Name, c, cfg.MaxRetries)
		}
		log.Printf("Roster: %s (%s %s, cli=%v, role=%s)", e.Name, e.Provider, e.Model, e.UseCLI, e.Role)
		seats = append(seats, seat)
	}
	return seats, nil
}

// humanSeat returns the name of the human player, if any.
func humanSeat(seats []Seat) (string, bool) {
	for _, s := range seats {
		if s.Controller == ControllerHuman {
			return s.Name, true
		}
	}
	return "", false
}
