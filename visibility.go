package main

import "strings"

// Visibility determines who can see an event:
//   - "public": everyone
//   - "team:mafia": only the Mafia
//   - "role:<Role>": only players holding that role (e.g. Cop results)
//   - "player:<name>": only that player (role notice, private notes)
//   - "postgame": nobody until reflection, then everyone
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityTeamMafia Visibility = "team:mafia"
	VisibilityPostGame  Visibility = "postgame"

	visibilityRolePrefix   = "role:"
	visibilityPlayerPrefix = "player:"
)

func VisibilityRole(r Role) Visibility { return Visibility(visibilityRolePrefix + string(r)) }

func VisibilityPlayer(name string) Visibility { return Visibility(visibilityPlayerPrefix + name) }

// Viewer is what the filter needs to know about whoever is asking.
type Viewer struct {
	Name string
	Role Role
}

func (p *Player) viewer() Viewer { return Viewer{Name: p.Name, Role: p.Role()} }

// canSeeEvent is a pure function of the event's visibility and the viewer's
// identity and role.
func canSeeEvent(e Event, v Viewer) bool {
	switch {
	case e.Visibility == VisibilityPublic:
		return true
	case e.Visibility == VisibilityTeamMafia:
		return v.Role == RoleMafia
	case e.Visibility == VisibilityPostGame:
		return false
	case strings.HasPrefix(string(e.Visibility), visibilityRolePrefix):
		return string(v.Role) == strings.TrimPrefix(string(e.Visibility), visibilityRolePrefix)
	case strings.HasPrefix(string(e.Visibility), visibilityPlayerPrefix):
		return v.Name == strings.TrimPrefix(string(e.Visibility), visibilityPlayerPrefix)
	default:
		return false
	}
}

// View returns, in log order, the events the viewer is entitled to see.
func View(events []Event, v Viewer) []Event {
	var visible []Event
	for _, e := range events {
		if canSeeEvent(e, v) {
			visible = append(visible, e)
		}
	}
	return visible
}

// PublicView is the spectator transcript: public events only.
func PublicView(events []Event) []Event {
	var visible []Event
	for _, e := range events {
		if e.Visibility == VisibilityPublic {
			visible = append(visible, e)
		}
	}
	return visible
}

// FullView is the unredacted log, handed out only after the game ends.
func FullView(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	return out
}
