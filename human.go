package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// consoleInput owns stdin. A line typed while a human is being asked
// something is that human's answer; any other line toggles pause.
type consoleInput struct {
	lines   chan string
	toggles chan struct{}
	waiting atomic.Bool
}

func newConsoleInput(r io.Reader) *consoleInput {
	c := &consoleInput{
		lines:   make(chan string, 1),
		toggles: make(chan struct{}, 1),
	}
	go c.scan(r)
	return c
}

func (c *consoleInput) scan(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if c.waiting.Load() {
			select {
			case c.lines <- line:
				continue
			default:
			}
		}
		select {
		case c.toggles <- struct{}{}:
		default:
		}
	}
	close(c.lines)
	close(c.toggles)
}

// Signals is the pause/continue source for the Pacer. It is closed on EOF.
func (c *consoleInput) Signals() <-chan struct{} { return c.toggles }

// ReadLine waits for the next answer line. ok is false on EOF or when ctx
// ends first.
func (c *consoleInput) ReadLine(ctx context.Context) (string, bool) {
	// drop an answer left over from an earlier timed-out prompt
	select {
	case <-c.lines:
	default:
	}
	c.waiting.Store(true)
	defer c.waiting.Store(false)
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-c.lines:
		return strings.TrimSpace(line), ok
	}
}

// humanAgent asks a person at the console. Blank input or a timeout is an
// abstain.
type humanAgent struct {
	name    string
	in      *consoleInput
	out     io.Writer
	gameID  string
	lastSeq int
}

func newHumanAgent(name string, in *consoleInput, out io.Writer) *humanAgent {
	return &humanAgent{name: name, in: in, out: out}
}

func (h *humanAgent) ask(ctx context.Context, question string) string {
	fmt.Fprintf(h.out, "%s > ", question)
	line, ok := h.in.ReadLine(ctx)
	if !ok {
		fmt.Fprintln(h.out, "(no answer)")
		return ""
	}
	return line
}

// catchUp prints what happened since this player's previous turn.
func (h *humanAgent) catchUp(tc TurnContext) {
	if tc.GameID != h.gameID {
		h.gameID, h.lastSeq = tc.GameID, 0
	}
	var fresh []Event
	for _, e := range tc.View {
		if e.Seq > h.lastSeq {
			fresh = append(fresh, e)
		}
	}
	if len(tc.View) > 0 {
		h.lastSeq = tc.View[len(tc.View)-1].Seq
	}
	fmt.Fprintf(h.out, "\n===== %s, your turn (%s, day %d) =====\n", h.name, tc.Role, tc.Day)
	if len(tc.Partners) > 0 {
		fmt.Fprintf(h.out, "Your partners: %s\n", strings.Join(tc.Partners, ", "))
	}
	fmt.Fprint(h.out, formatEvents(fresh))
	fmt.Fprintf(h.out, "Alive: %s\n%s\n", strings.Join(tc.Living, ", "), tc.Instruction)
}

func (h *humanAgent) Speak(ctx context.Context, tc TurnContext) (Turn, error) {
	h.catchUp(tc)
	t := Turn{Speech: h.ask(ctx, "Your words (Enter to stay silent)")}
	if tc.Kind == TurnSpeech {
		t.Target = h.ask(ctx, "Nominate a player (Enter to skip)")
	}
	return t, nil
}

func (h *humanAgent) Vote(ctx context.Context, tc TurnContext) (Turn, error) {
	h.catchUp(tc)
	answer := h.ask(ctx, fmt.Sprintf("Is %s guilty? [guilty/innocent, Enter to abstain]", tc.Defendant))
	switch strings.ToLower(answer) {
	case "g", "y", "yes":
		answer = guiltyVote
	case "i", "n", "no":
		answer = innocentVote
	}
	return Turn{Target: answer}, nil
}

func (h *humanAgent) NightAction(ctx context.Context, tc TurnContext) (Turn, error) {
	h.catchUp(tc)
	var t Turn
	if tc.Role == RoleMafia {
		t.Speech = h.ask(ctx, "Whisper to your partners (Enter to stay silent)")
		t.Target = h.ask(ctx, "Who dies tonight? (Enter to pass)")
		return t, nil
	}
	t.Target = h.ask(ctx, "Who do you investigate? (Enter to skip)")
	return t, nil
}

func (h *humanAgent) Reflect(ctx context.Context, rc ReflectionContext) (string, error) {
	fmt.Fprintf(h.out, "\n===== Game over: %s wins =====\n", winnerLabel(rc.Winner))
	return h.ask(ctx, fmt.Sprintf("Notes for your next game, max %d words (Enter keeps your old notes)", rc.WordCap)), nil
}
