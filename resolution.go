package main

import (
	"fmt"
	"sort"
	"strings"
)

// ExecutionRule decides when a trial executes the defendant. It is fixed for
// the whole process by configuration.
type ExecutionRule string

const (
	// ExecutionMajority: guilty votes must exceed half of the living players.
	ExecutionMajority ExecutionRule = "majority"
	// ExecutionPlurality: guilty votes must strictly exceed innocent votes.
	ExecutionPlurality ExecutionRule = "plurality"
)

// NightTieRule decides what happens when the Mafia split evenly.
type NightTieRule string

const (
	// NightTieFirst kills the tied target that was submitted first.
	NightTieFirst NightTieRule = "first"
	// NightTieNone skips the kill.
	NightTieNone NightTieRule = "none"
)

// MafiaWinRule decides when the Mafia have won.
type MafiaWinRule string

const (
	MafiaWinParity      MafiaWinRule = "parity"
	MafiaWinElimination MafiaWinRule = "elimination"
)

func parseExecutionRule(s string) (ExecutionRule, error) {
	switch r := ExecutionRule(strings.ToLower(s)); r {
	case ExecutionMajority, ExecutionPlurality:
		return r, nil
	}
	return "", fmt.Errorf("%w: execution rule %q (valid: majority, plurality)", ErrInvalidRule, s)
}

func parseNightTieRule(s string) (NightTieRule, error) {
	switch r := NightTieRule(strings.ToLower(s)); r {
	case NightTieFirst, NightTieNone:
		return r, nil
	}
	return "", fmt.Errorf("%w: night tie rule %q (valid: first, none)", ErrInvalidRule, s)
}

func parseMafiaWinRule(s string) (MafiaWinRule, error) {
	switch r := MafiaWinRule(strings.ToLower(s)); r {
	case MafiaWinParity, MafiaWinElimination:
		return r, nil
	}
	return "", fmt.Errorf("%w: mafia win rule %q (valid: parity, elimination)", ErrInvalidRule, s)
}

// NotGuilty is the pseudo-target of an innocent trial vote.
const NotGuilty = "not guilty"

// Ballot is one voter's choice. An empty target is an abstain.
type Ballot struct {
	Voter  string
	Target string
}

// Tally counts non-abstaining ballots per target and remembers the order in
// which each target first received a vote.
type Tally struct {
	Counts   map[string]int
	Abstains int
	order    []string
}

// TallyVotes is deterministic: the same ballots always give the same tally.
func TallyVotes(ballots []Ballot) Tally {
	t := Tally{Counts: make(map[string]int)}
	for _, b := range ballots {
		if b.Target == "" {
			t.Abstains++
			continue
		}
		if _, seen := t.Counts[b.Target]; !seen {
			t.order = append(t.order, b.Target)
		}
		t.Counts[b.Target]++
	}
	return t
}

// Leaders returns the targets with the highest count, in first-vote order.
func (t Tally) Leaders() ([]string, int) {
	best := 0
	for _, c := range t.Counts {
		if c > best {
			best = c
		}
	}
	if best == 0 {
		return nil, 0
	}
	var leaders []string
	for _, target := range t.order {
		if t.Counts[target] == best {
			leaders = append(leaders, target)
		}
	}
	return leaders, best
}

// String renders the tally the way it is announced: "Rick (3), not guilty (2)".
func (t Tally) String() string {
	if len(t.Counts) == 0 {
		return "No votes"
	}
	targets := make([]string, len(t.order))
	copy(targets, t.order)
	sort.SliceStable(targets, func(i, j int) bool { return t.Counts[targets[i]] > t.Counts[targets[j]] })
	parts := make([]string, 0, len(targets))
	for _, target := range targets {
		parts = append(parts, fmt.Sprintf("%s (%d)", target, t.Counts[target]))
	}
	s := strings.Join(parts, ", ")
	if t.Abstains > 0 {
		s += fmt.Sprintf(", abstained (%d)", t.Abstains)
	}
	return s
}

// resolveExecution returns the executed player, if any. Ties never execute
// and NotGuilty can never be executed.
func resolveExecution(t Tally, living int, rule ExecutionRule) (string, bool) {
	leaders, count := t.Leaders()
	if len(leaders) != 1 || leaders[0] == NotGuilty {
		return "", false
	}
	switch rule {
	case ExecutionPlurality:
		return leaders[0], true
	default:
		majority := living/2 + 1
		if count < majority {
			return "", false
		}
		return leaders[0], true
	}
}

// resolveNightKill picks the single Mafia kill for the night from ballots
// that have already been validated against living players.
func resolveNightKill(ballots []Ballot, rule NightTieRule) (string, bool) {
	leaders, _ := TallyVotes(ballots).Leaders()
	switch {
	case len(leaders) == 0:
		return "", false
	case len(leaders) == 1:
		return leaders[0], true
	case rule == NightTieFirst:
		return leaders[0], true
	default:
		return "", false
	}
}
