package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSON = errors.New("no JSON object in response")

func buildSystemPrompt(tc TurnContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are playing a game of Mafia.\nYour name is %s. Your role is %s.\n", tc.Self, tc.Role)
	fmt.Fprintf(&b, "There are %d players: %d Mafia", tc.PlayerCount, tc.MafiaCount)
	if tc.CopCount > 0 {
		fmt.Fprintf(&b, ", %d Cop", tc.CopCount)
	}
	b.WriteString(" and the rest Villagers.\n")

	switch tc.Role {
	case RoleMafia:
		if len(tc.Partners) > 0 {
			fmt.Fprintf(&b, "Your Mafia partners: %s. You work together to eliminate the town.\n", strings.Join(tc.Partners, ", "))
		} else {
			b.WriteString("You are the only Mafia member left.\n")
		}
		b.WriteString("GOAL: deceive the town and kill at night until the Mafia equals the town in number.\n")
	case RoleCop:
		b.WriteString("Each night you investigate one player and privately learn if they are Mafia or Town.\n")
		b.WriteString("GOAL: find the Mafia and lead the town to execute them. Revealing yourself makes you a target.\n")
	default:
		b.WriteString("You do not know who the Mafia is.\n")
		b.WriteString("GOAL: find the Mafia and execute them by vote.\n")
	}

	b.WriteString(`
OUTPUT FORMAT
Respond with a single JSON object and nothing else:
{
  "notes": "private strategy notes for your future turns (max 50 words)",
  "speech": "what you say (max 75 words)",
  "vote": "exact player name, a verdict, or null"
}
`)
	return b.String()
}

func buildTurnPrompt(tc TurnContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current state: %s, day %d\n", tc.Phase, tc.Day)
	fmt.Fprintf(&b, "Living players: %s\n", strings.Join(tc.Living, ", "))
	if len(tc.Dead) > 0 {
		var dead []string
		for _, d := range tc.Dead {
			how := "executed"
			if d.Cause == CauseNightKill {
				how = "killed at night"
			}
			if d.Role != "" {
				dead = append(dead, fmt.Sprintf("%s (%s, %s on day %d)", d.Name, d.Role, how, d.Day))
			} else {
				dead = append(dead, fmt.Sprintf("%s (%s on day %d)", d.Name, how, d.Day))
			}
		}
		fmt.Fprintf(&b, "Dead players: %s\n", strings.Join(dead, ", "))
	}
	if tc.Defendant != "" {
		fmt.Fprintf(&b, "On trial: %s\n", tc.Defendant)
	}

	var log, notes []Event
	for _, e := range tc.View {
		if e.Kind == EventMemoryNote {
			notes = append(notes, e)
			continue
		}
		log = append(log, e)
	}
	b.WriteString("\n--- GAME LOG ---\n")
	b.WriteString(formatEvents(log))

	if len(notes) > 0 {
		b.WriteString("\n--- YOUR NOTES ---\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "- Day %d: %s\n", n.Day, n.Content)
		}
	}
	if tc.Memory != "" {
		b.WriteString("\n--- LESSONS FROM PREVIOUS GAMES ---\n")
		b.WriteString(tc.Memory)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(tc.Instruction)
	b.WriteString("\n")
	return b.String()
}

func buildReflectionSystemPrompt(rc ReflectionContext) string {
	return fmt.Sprintf(`You are %s. You just finished a game of Mafia as %s.
Write your updated memory for future games: what worked, what failed, how other players behaved.
It replaces your previous memory completely, so keep what is still useful.
Answer in plain text, at most %d words.`, rc.Self, rc.Role, rc.WordCap)
}

func buildReflectionPrompt(rc ReflectionContext) string {
	var b strings.Builder
	result := "lost"
	if rc.Winner != TeamNone && rc.Winner == rc.Role.Team() {
		result = "won"
	} else if rc.Winner == TeamNone {
		result = "drew"
	}
	status := "died"
	if rc.Survived {
		status = "survived"
	}
	fmt.Fprintf(&b, "Result: your team %s, you %s. Winner: %s.\n", result, status, winnerLabel(rc.Winner))
	b.WriteString("\n--- FULL GAME LOG (all roles revealed) ---\n")
	b.WriteString(formatEvents(rc.FullLog))
	b.WriteString("\n--- YOUR PREVIOUS MEMORY ---\n")
	if rc.Memory == "" {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(rc.Memory)
		b.WriteString("\n")
	}
	return b.String()
}

type turnPayload struct {
	Notes    string          `json:"notes"`
	Thought  string          `json:"thought"`
	Strategy string          `json:"strategy"`
	Speech   string          `json:"speech"`
	Vote     json.RawMessage `json:"vote"`
	Target   json.RawMessage `json:"target"`
}

// parseTurn reads the first JSON object in a model answer. Code fences and
// chatter around the object are ignored.
func parseTurn(text string) (Turn, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return Turn{}, err
	}
	var p turnPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Turn{}, fmt.Errorf("parse turn: %w", err)
	}
	notes := p.Notes
	if notes == "" {
		notes = p.Thought
	}
	if notes == "" {
		notes = p.Strategy
	}
	target := rawString(p.Vote)
	if target == "" {
		target = rawString(p.Target)
	}
	return Turn{Notes: notes, Speech: p.Speech, Target: target}, nil
}

// rawString accepts a JSON string; null, numbers and objects are an abstain.
func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func extractJSON(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, errNoJSON
	}
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errNoJSON, err)
	}
	return raw, nil
}

// parseReflection strips fences and, when a model answers with JSON anyway,
// takes the first text field it recognises.
func parseReflection(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") {
		var m map[string]any
		if json.Unmarshal([]byte(text), &m) == nil {
			for _, key := range []string{"memory", "summary", "notes", "speech"} {
				if s, ok := m[key].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return text
}
