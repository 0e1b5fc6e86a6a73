package main

import "sync"

type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseDay        Phase = "day"
	PhaseTrial      Phase = "trial"
	PhaseVoting     Phase = "voting"
	PhaseLastWords  Phase = "last_words"
	PhaseNight      Phase = "night"
	PhaseGameOver   Phase = "game_over"
	PhaseReflection Phase = "reflection"
)

type EventKind string

// Event kinds
const (
	EventSpeech        EventKind = "speech"
	EventWhisper       EventKind = "whisper"
	EventNomination    EventKind = "nomination"
	EventVote          EventKind = "vote"
	EventNightAction   EventKind = "night_action"
	EventInvestigation EventKind = "investigation"
	EventDeath         EventKind = "death"
	EventRoleReveal    EventKind = "role_reveal"
	EventMemoryNote    EventKind = "memory_note"
	EventSystem        EventKind = "system"
	EventNarration     EventKind = "narration"
)

// SystemActor is the actor name used for engine announcements.
const SystemActor = "System"

// Event is one entry of the canonical game log. Events are values: the log
// only ever hands out copies, so an appended event can't be edited.
type Event struct {
	Seq        int        `db:"seq" json:"seq"`
	Day        int        `db:"day" json:"day"`
	Phase      Phase      `db:"phase" json:"phase"`
	Kind       EventKind  `db:"kind" json:"kind"`
	Actor      string     `db:"actor" json:"actor"`
	Target     string     `db:"target" json:"target,omitempty"`
	Content    string     `db:"content" json:"content"`
	Visibility Visibility `db:"visibility" json:"visibility"`
}

// EventLog is the append-only game log. Only the turn loop writes to it; the
// mutex exists because spectator handlers read it from other goroutines.
type EventLog struct {
	mu     sync.RWMutex
	events []Event
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append stamps the event with the next sequence number and stores it.
func (l *EventLog) Append(e Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Seq = len(l.events) + 1
	l.events = append(l.events, e)
	return e
}

// Events returns a copy of the whole log.
func (l *EventLog) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
