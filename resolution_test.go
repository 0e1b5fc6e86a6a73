package main

import (
	"testing"
)

func ballots(pairs ...string) []Ballot {
	var out []Ballot
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Ballot{Voter: pairs[i], Target: pairs[i+1]})
	}
	return out
}

func TestTallyIsDeterministic(t *testing.T) {
	b := ballots("A", "Rick", "B", NotGuilty, "C", "Rick", "D", "", "E", NotGuilty)
	first := TallyVotes(b).String()
	for i := 0; i < 10; i++ {
		if got := TallyVotes(b).String(); got != first {
			t.Fatalf("Tally changed between runs: %q vs %q", first, got)
		}
	}
	if first != "Rick (2), not guilty (2), abstained (1)" {
		t.Errorf("Unexpected tally string %q", first)
	}
	if got := TallyVotes(nil).String(); got != "No votes" {
		t.Errorf("Empty tally should read 'No votes', got %q", got)
	}
}

func TestResolveExecution(t *testing.T) {
	tests := []struct {
		name    string
		ballots []Ballot
		living  int
		rule    ExecutionRule
		want    string
	}{
		{"5 of 8 is a majority", ballots("A", "D", "B", "D", "C", "D", "E", "D", "F", "D", "G", NotGuilty, "H", NotGuilty, "D", NotGuilty), 8, ExecutionMajority, "D"},
		{"4 of 8 is not", ballots("A", "D", "B", "D", "C", "D", "E", "D"), 8, ExecutionMajority, ""},
		{"4-4 tie", ballots("A", "D", "B", "D", "C", "D", "E", "D", "F", NotGuilty, "G", NotGuilty, "H", NotGuilty, "D", NotGuilty), 8, ExecutionPlurality, ""},
		{"plurality with abstains", ballots("A", "D", "B", "D", "C", "D", "E", NotGuilty, "F", NotGuilty, "G", "", "H", ""), 8, ExecutionPlurality, "D"},
		{"same ballots under majority", ballots("A", "D", "B", "D", "C", "D", "E", NotGuilty, "F", NotGuilty, "G", "", "H", ""), 8, ExecutionMajority, ""},
		{"not guilty wins", ballots("A", NotGuilty, "B", NotGuilty, "C", "D"), 3, ExecutionPlurality, ""},
		{"all abstain", ballots("A", "", "B", ""), 2, ExecutionPlurality, ""},
	}
	for _, tt := range tests {
		got, ok := resolveExecution(TallyVotes(tt.ballots), tt.living, tt.rule)
		if got != tt.want || ok != (tt.want != "") {
			t.Errorf("%s: got (%q, %v), want %q", tt.name, got, ok, tt.want)
		}
	}
}

func TestResolveNightKill(t *testing.T) {
	tests := []struct {
		name    string
		ballots []Ballot
		rule    NightTieRule
		want    string
	}{
		{"agreement", ballots("A", "C", "B", "C"), NightTieNone, "C"},
		{"tie, first submitted", ballots("A", "E", "B", "F"), NightTieFirst, "E"},
		{"tie, none", ballots("A", "E", "B", "F"), NightTieNone, ""},
		{"one passes", ballots("A", "", "B", "F"), NightTieNone, "F"},
		{"no valid ballots", ballots("A", "", "B", ""), NightTieFirst, ""},
		{"no mafia", nil, NightTieFirst, ""},
	}
	for _, tt := range tests {
		got, ok := resolveNightKill(tt.ballots, tt.rule)
		if got != tt.want || ok != (tt.want != "") {
			t.Errorf("%s: got (%q, %v), want %q", tt.name, got, ok, tt.want)
		}
	}
}

func TestParseRules(t *testing.T) {
	if r, err := parseExecutionRule("Plurality"); err != nil || r != ExecutionPlurality {
		t.Errorf("parseExecutionRule: %v %v", r, err)
	}
	if _, err := parseExecutionRule("unanimous"); err == nil {
		t.Error("unknown execution rule should fail")
	}
	if _, err := parseNightTieRule("random"); err == nil {
		t.Error("unknown night tie rule should fail")
	}
	if r, err := parseMafiaWinRule("elimination"); err != nil || r != MafiaWinElimination {
		t.Errorf("parseMafiaWinRule: %v %v", r, err)
	}
}

func TestResolveTargetAndNormalizeName(t *testing.T) {
	g, err := newGame(testGameConfig(), eightPlayerTable().seats, newTestRand())
	if err != nil {
		t.Fatal(err)
	}
	g.player("H").Alive = false

	tests := []struct {
		raw  string
		want string
	}{
		{"D", "D"},
		{" d ", "D"},
		{"**E**", "E"},
		{"@F", "F"},
		{"\"G\"", "G"},
		{"H", ""}, // dead
		{"Zed", ""},
		{"null", ""},
		{"nobody", ""},
		{"", ""},
	}
	for _, tt := range tests {
		p, ok := g.resolveTarget(tt.raw)
		got := ""
		if ok {
			got = p.Name
		}
		if got != tt.want {
			t.Errorf("resolveTarget(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
