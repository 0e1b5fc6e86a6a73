package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

// readSpectatorEvent reads messages until one with a matching content arrives.
// A spectator that connects mid-broadcast may see an event twice.
func readSpectatorEvent(t *testing.T, conn *websocket.Conn, content string) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Waiting for %q: %v", content, err)
		}
		var msg SpectatorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Bad spectator message %s: %v", data, err)
		}
		if msg.Event.Visibility != VisibilityPublic {
			t.Fatalf("Spectator received a secret event: %+v", msg.Event)
		}
		if msg.Event.Content == content {
			return msg.Event
		}
	}
}

func TestWebSocketSync(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := newHub()
	hub.start()
	server := httptest.NewServer(spectatorHandler(hub))

	// backlog before anyone connects
	hub.OnEvent(Event{Seq: 1, Kind: EventSystem, Content: "A new game begins.", Visibility: VisibilityPublic})
	hub.OnEvent(Event{Seq: 2, Kind: EventSystem, Content: "The Mafia are: A, B.", Visibility: VisibilityTeamMafia})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	readSpectatorEvent(t, conn, "A new game begins.")

	hub.OnEvent(Event{Seq: 3, Kind: EventWhisper, Actor: "A", Content: "kill the cop", Visibility: VisibilityTeamMafia})
	hub.OnEvent(Event{Seq: 4, Kind: EventSpeech, Actor: "E", Content: "Good morning.", Visibility: VisibilityPublic})
	if e := readSpectatorEvent(t, conn, "Good morning."); e.Actor != "E" {
		t.Errorf("Unexpected event %+v", e)
	}

	resp, err := http.Get(server.URL + "/transcript")
	if err != nil {
		t.Fatalf("GET /transcript: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("Transcript should not be cached")
	}
	var transcript []SpectatorMessage
	if err := json.Unmarshal(body, &transcript); err != nil {
		t.Fatalf("Bad transcript %s: %v", body, err)
	}
	if len(transcript) != 2 {
		t.Errorf("Transcript should hold the 2 public events, got %d", len(transcript))
	}

	conn.Close()
	server.CloseClientConnections()
	server.Close()
	hub.stop()
	http.DefaultClient.CloseIdleConnections()
}

func TestHubResetsHistoryForNewGame(t *testing.T) {
	hub := newHub()
	hub.OnEvent(Event{Seq: 1, Content: "game one", Visibility: VisibilityPublic})
	hub.OnEvent(Event{Seq: 2, Content: "more", Visibility: VisibilityPublic})
	hub.OnEvent(Event{Seq: 1, Content: "game two", Visibility: VisibilityPublic})

	rec := httptest.NewRecorder()
	hub.handleTranscript(rec, httptest.NewRequest("GET", "/transcript", nil))
	if !strings.Contains(rec.Body.String(), "game two") || strings.Contains(rec.Body.String(), "game one") {
		t.Errorf("Transcript should only hold the current game: %s", rec.Body.String())
	}
}
