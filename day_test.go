package main

import (
	"strings"
	"testing"
)

var eightPlayers = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// eightPlayerTable: A and B are Mafia, C is the Cop, the rest are Villagers.
func eightPlayerTable() *testTable {
	return newTestTable(eightPlayers, map[string]Role{"A": RoleMafia, "B": RoleMafia, "C": RoleCop})
}

func TestMajorityVoteExecutesDefendant(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.cleanup()
	ctx.logger.Debug("=== Testing 5 of 8 guilty votes execute ===")

	tt := eightPlayerTable()
	tt.nominate(1, "D", "A", "B")
	tt.vote(1, "guilty", "A", "B", "C", "E", "F")
	tt.vote(1, "innocent", "D", "G", "H")

	cfg := testGameConfig()
	cfg.MaxDays = 1
	g := runTestGame(t, &Engine{Config: cfg, Seats: tt.seats})
	events := g.Log.Events()

	if _, ok := findEvent(events, EventSystem, "D has been put on trial."); !ok {
		t.Fatal("D should be put on trial after the second nomination")
	}
	if n := countKind(events, EventVote); n != 8 {
		t.Errorf("Expected 8 trial ballots (defendant included), got %d", n)
	}
	if _, ok := findEvent(events, EventSystem, "Votes: D (5), not guilty (3)"); !ok {
		t.Errorf("Expected announced tally 'D (5), not guilty (3)'")
	}
	if len(g.Deaths) == 0 || g.Deaths[0].Name != "D" || g.Deaths[0].Cause != CauseLynch {
		t.Fatalf("Expected D to be executed first, deaths: %+v", g.Deaths)
	}
	reveal, ok := findEvent(events, EventRoleReveal, "D was Villager.")
	if !ok || reveal.Visibility != VisibilityPublic {
		t.Errorf("Expected a public role reveal for D, got %+v", reveal)
	}
	if got := len(tt.agents["D"].turnsOf(TurnDefense)); got != 1 {
		t.Errorf("D should give exactly one defense, got %d", got)
	}
	if got := len(tt.agents["D"].turnsOf(TurnLastWords)); got != 1 {
		t.Errorf("D should get last words once executed, got %d", got)
	}
}

func TestTiedTrialDoesNotExecute(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.cleanup()
	ctx.logger.Debug("=== Testing 4-4 split spares the defendant ===")

	for _, rule := range []ExecutionRule{ExecutionMajority, ExecutionPlurality} {
		tt := eightPlayerTable()
		tt.nominate(1, "D", "A", "B")
		tt.vote(1, "guilty", "A", "B", "C", "E")
		tt.vote(1, "innocent", "D", "F", "G", "H")

		cfg := testGameConfig()
		cfg.MaxDays = 1
		cfg.ExecutionRule = rule
		g := runTestGame(t, &Engine{Config: cfg, Seats: tt.seats})
		events := g.Log.Events()

		if _, ok := findEvent(events, EventSystem, "D is spared."); !ok {
			t.Errorf("%s: D should be spared on a 4-4 split", rule)
		}
		if len(g.Deaths) != 0 {
			t.Errorf("%s: nobody should die, deaths: %+v", rule, g.Deaths)
		}
		if _, ok := findEvent(events, EventSystem, "Nobody died."); !ok {
			t.Errorf("%s: an idle Mafia should leave the night quiet", rule)
		}
		if g.Winner != TeamNone || !g.Over {
			t.Errorf("%s: expected a draw at the day limit, got winner %q over=%v", rule, g.Winner, g.Over)
		}
	}
}

func TestNoTrialWithoutEnoughNominations(t *testing.T) {
	tt := eightPlayerTable()
	tt.nominate(1, "D", "A")
	tt.nominate(1, "E", "B")
	tt.nominate(1, "C", "C") // self nominations are ignored

	cfg := testGameConfig()
	cfg.MaxDays = 1
	g := runTestGame(t, &Engine{Config: cfg, Seats: tt.seats})
	events := g.Log.Events()

	if _, ok := findEvent(events, EventSystem, "There is no trial today."); !ok {
		t.Error("Expected no trial with single nominations only")
	}
	if n := countKind(events, EventNomination); n != 2 {
		t.Errorf("Expected 2 valid nominations, got %d", n)
	}
	if n := countKind(events, EventVote); n != 0 {
		t.Errorf("No ballots expected without a trial, got %d", n)
	}
}

func TestFirstPlayerToReachThresholdIsTried(t *testing.T) {
	tt := eightPlayerTable()
	tt.nominate(1, "E", "A", "C")
	tt.nominate(1, "D", "B", "D") // D can't nominate itself, stays at one
	tt.nominate(1, "F", "G", "H")

	cfg := testGameConfig()
	cfg.MaxDays = 1
	g := runTestGame(t, &Engine{Config: cfg, Seats: tt.seats})
	events := g.Log.Events()

	if _, ok := findEvent(events, EventSystem, "E has been put on trial."); !ok {
		t.Error("E reached two nominations first and should be tried")
	}
	if _, ok := findEvent(events, EventSystem, "F has been put on trial."); ok {
		t.Error("Only one trial per day")
	}
	for _, tc := range tt.agents["G"].turnsOf(TurnVote) {
		if tc.Defendant != "E" {
			t.Errorf("Trial vote context should name E, got %q", tc.Defendant)
		}
	}
}

func TestLastMafiaExecutedEndsGameBeforeNight(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.cleanup()
	ctx.logger.Debug("=== Testing Town win on Day 2 ===")

	tt := eightPlayerTable()
	// Day 1: A is executed
	tt.nominate(1, "A", "C", "D")
	tt.vote(1, "guilty", "C", "D", "E", "F", "G")
	// Night 1: B kills E, C checks B
	tt.night(1, "E", "B")
	tt.night(1, "B", "C")
	// Day 2: B is executed
	tt.nominate(2, "B", "C", "D")
	tt.vote(2, "guilty", "C", "D", "F", "G")

	g := runTestGame(t, &Engine{Config: testGameConfig(), Seats: tt.seats})
	events := g.Log.Events()

	if g.Winner != TeamTown || g.Day != 2 {
		t.Fatalf("Expected Town to win on day 2, got %q on day %d", g.Winner, g.Day)
	}
	if _, ok := findEvent(events, EventSystem, "Night 2 falls."); ok {
		t.Error("No night should follow the final execution")
	}
	if n := len(tt.agents["C"].turnsOf(TurnNight)); n != 1 {
		t.Errorf("The Cop should have acted on one night only, got %d", n)
	}
	last := events[len(events)-1]
	if last.Visibility != VisibilityPostGame {
		t.Errorf("The log should end with the post-game reveal, got %+v", last)
	}
}

func TestDayTwoSpeakingOrderRotates(t *testing.T) {
	tt := eightPlayerTable()
	cfg := testGameConfig()
	cfg.MaxDays = 2
	g := runTestGame(t, &Engine{Config: cfg, Seats: tt.seats})

	var speakers []string
	for _, e := range g.Log.Events() {
		if e.Kind == EventSpeech && e.Day == 2 {
			speakers = append(speakers, e.Actor)
		}
	}
	if got := strings.Join(speakers, ""); got != "BCDEFGHA" {
		t.Errorf("Day 2 should open with the second seat, got order %s", got)
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"guilty", "Rick"},
		{"GUILTY", "Rick"},
		{"Rick", "Rick"},
		{"yes", "Rick"},
		{"innocent", NotGuilty},
		{"not guilty", NotGuilty},
		{"no", NotGuilty},
		{"", ""},
		{"null", ""},
		{"Bob", ""},
	}
	for _, tt := range tests {
		if got := parseVerdict(tt.raw, "Rick"); got != tt.want {
			t.Errorf("parseVerdict(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestLYLOWarning(t *testing.T) {
	tt := newTestTable([]string{"A", "B", "C", "D", "E"}, map[string]Role{"A": RoleMafia, "B": RoleMafia, "C": RoleCop})
	tt.nominate(1, "D", "A", "B")
	tt.vote(1, "guilty", "A", "B", "E")

	g := runTestGame(t, &Engine{Config: testGameConfig(), Seats: tt.seats})
	events := g.Log.Events()

	if _, ok := findEvent(events, EventSystem, "LYLO"); !ok {
		t.Error("2 Mafia against 3 Town should trigger the LYLO warning")
	}
	if g.Winner != TeamMafia {
		t.Errorf("Executing a villager at 2 vs 3 should hand Mafia the win, got %q", g.Winner)
	}
	if n := len(tt.agents["A"].turnsOf(TurnNight)); n != 0 {
		t.Errorf("No night after the game is won, A got %d night turns", n)
	}
}
