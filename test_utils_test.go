package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
)

// ============================================================================
// Test Logger
// ============================================================================

// TestLogger wraps AppLogger for test use with testing.T integration
type TestLogger struct {
	*AppLogger
	t *testing.T
}

// NewTestLogger creates a test logger from environment variables
func NewTestLogger(t *testing.T) *TestLogger {
	al, err := NewAppLogger(LogConfig{
		OutputDir: os.Getenv("TEST_OUTPUT_DIR"),
		LogDB:     os.Getenv("TEST_LOG_DB") == "1",
		Debug:     os.Getenv("TEST_DEBUG") == "1",
	})
	if err != nil {
		t.Fatalf("Failed to create test logger: %v", err)
	}
	return &TestLogger{AppLogger: al, t: t}
}

// Debug logs a debug message using testing.T.Logf
func (tl *TestLogger) Debug(format string, args ...any) {
	if !tl.debug {
		return
	}
	tl.t.Logf("[DEBUG] "+format, args...)
}

// ============================================================================
// Test Context
// ============================================================================

// TestContext holds test infrastructure including logger and database
type TestContext struct {
	t       *testing.T
	logger  *TestLogger
	db      *sqlx.DB
	cleanup func()
}

// newTestContext opens a private in-memory database with the full schema.
func newTestContext(t *testing.T) *TestContext {
	logger := NewTestLogger(t)

	conn, err := openDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	logger.attachDB(conn)
	logger.LogDB("after initDB")

	return &TestContext{
		t:      t,
		logger: logger,
		db:     conn,
		cleanup: func() {
			logger.LogDB("before cleanup")
			conn.Close()
			logger.Close()
		},
	}
}

// ============================================================================
// Scripted players
// ============================================================================

// scriptedAgent answers from a fixed script and records what it was shown.
// Script keys are "<kind><day>", e.g. "speech1", "vote2", "night1".
type scriptedAgent struct {
	name        string
	targets     map[string]string
	speeches    map[string]string
	notes       map[string]string
	reflection  string
	reflectErr  error
	turnErr     error
	contexts    []TurnContext
	reflections []ReflectionContext
}

func scriptKey(kind TurnKind, day int) string { return fmt.Sprintf("%s%d", kind, day) }

func newScriptedAgent(name string) *scriptedAgent {
	return &scriptedAgent{
		name:     name,
		targets:  make(map[string]string),
		speeches: make(map[string]string),
		notes:    make(map[string]string),
	}
}

func (a *scriptedAgent) answer(tc TurnContext) (Turn, error) {
	a.contexts = append(a.contexts, tc)
	if a.turnErr != nil {
		return Turn{}, a.turnErr
	}
	key := scriptKey(tc.Kind, tc.Day)
	speech, ok := a.speeches[key]
	if !ok && tc.Kind == TurnSpeech {
		speech = fmt.Sprintf("%s has nothing to hide.", a.name)
	}
	return Turn{Notes: a.notes[key], Speech: speech, Target: a.targets[key]}, nil
}

func (a *scriptedAgent) Speak(_ context.Context, tc TurnContext) (Turn, error) { return a.answer(tc) }

func (a *scriptedAgent) Vote(_ context.Context, tc TurnContext) (Turn, error) { return a.answer(tc) }

func (a *scriptedAgent) NightAction(_ context.Context, tc TurnContext) (Turn, error) {
	return a.answer(tc)
}

func (a *scriptedAgent) Reflect(_ context.Context, rc ReflectionContext) (string, error) {
	a.reflections = append(a.reflections, rc)
	return a.reflection, a.reflectErr
}

// turnsOf returns the contexts the agent was asked with for one turn kind.
func (a *scriptedAgent) turnsOf(kind TurnKind) []TurnContext {
	var out []TurnContext
	for _, tc := range a.contexts {
		if tc.Kind == kind {
			out = append(out, tc)
		}
	}
	return out
}

// testTable seats scripted players in the given order. roles pins players to
// a role through their preference; everyone else is dealt randomly.
type testTable struct {
	seats  []Seat
	agents map[string]*scriptedAgent
}

func newTestTable(names []string, roles map[string]Role) *testTable {
	tt := &testTable{agents: make(map[string]*scriptedAgent)}
	for _, n := range names {
		a := newScriptedAgent(n)
		tt.agents[n] = a
		tt.seats = append(tt.seats, Seat{Name: n, Controller: ControllerAI, Preference: roles[n], Agent: a})
	}
	return tt
}

// nominate scripts day speeches: each voter nominates target on that day.
func (tt *testTable) nominate(day int, target string, voters ...string) {
	for _, v := range voters {
		tt.agents[v].targets[scriptKey(TurnSpeech, day)] = target
	}
}

// vote scripts trial verdicts for a day.
func (tt *testTable) vote(day int, verdict string, voters ...string) {
	for _, v := range voters {
		tt.agents[v].targets[scriptKey(TurnVote, day)] = verdict
	}
}

// night scripts night targets for a day.
func (tt *testTable) night(day int, target string, players ...string) {
	for _, p := range players {
		tt.agents[p].targets[scriptKey(TurnNight, day)] = target
	}
}

func newTestRand() *rand.Rand { return rand.New(rand.NewSource(42)) }

func testGameConfig() GameConfig {
	gc := defaultGameConfig()
	gc.TurnDelay = 0
	gc.TurnTimeout = 0
	gc.Seed = 42
	return gc
}

// recordingObserver keeps every event it is notified of.
type recordingObserver struct {
	events []Event
}

func (r *recordingObserver) OnEvent(e Event) { r.events = append(r.events, e) }

// runTestGame plays a full game and fails the test on any error.
func runTestGame(t *testing.T, e *Engine) *Game {
	t.Helper()
	g, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return g
}

// findEvent returns the first event of kind whose content contains substr.
func findEvent(events []Event, kind EventKind, substr string) (Event, bool) {
	for _, e := range events {
		if e.Kind == kind && strings.Contains(e.Content, substr) {
			return e, true
		}
	}
	return Event{}, false
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
