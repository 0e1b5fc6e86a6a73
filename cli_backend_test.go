package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// stubCommand replaces runCommand for one test and records the call.
func stubCommand(t *testing.T, stdout string, err error) *[]string {
	t.Helper()
	var got []string
	orig := runCommand
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		got = append([]string{name}, args...)
		return []byte(stdout), []byte("boom"), err
	}
	t.Cleanup(func() { runCommand = orig })
	return &got
}

func TestCLIArgs(t *testing.T) {
	tests := []struct {
		tool, model string
		want        string
	}{
		{"claude", "sonnet", "-p|PROMPT|--model|sonnet"},
		{"claude", "", "-p|PROMPT"},
		{"codex", "o4-mini", "exec|--model|o4-mini|PROMPT"},
		{"gemini", "gemini-2.5-pro", "-m|gemini-2.5-pro|-p|PROMPT"},
		{"qwen", "", "-p|PROMPT"},
		{"ollama", "llama3", "run|llama3|PROMPT"},
	}
	for _, tt := range tests {
		c, err := newCLICompleter(tt.tool, tt.model, 0, 0)
		if err != nil {
			t.Fatalf("%s: %v", tt.tool, err)
		}
		if got := strings.Join(c.args("PROMPT"), "|"); got != tt.want {
			t.Errorf("%s args = %s, want %s", tt.tool, got, tt.want)
		}
	}
}

func TestCLICompleterRejectsUnknownTools(t *testing.T) {
	if _, err := newCLICompleter("notepad", "", 0, 0); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
	if _, err := newCLICompleter("ollama", "", 0, 0); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("ollama without a model should fail, got %v", err)
	}
}

func TestCLICompleterComplete(t *testing.T) {
	got := stubCommand(t, "  {\"speech\":\"hi\"}\n", nil)
	c, _ := newCLICompleter("claude", "", time.Second, 0)

	text, err := c.Complete(context.Background(), "be brief", "your turn")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"speech":"hi"}` {
		t.Errorf("Output should be trimmed, got %q", text)
	}
	call := *got
	if call[0] != "claude" || !strings.Contains(call[2], "[System Instructions]\nbe brief") || !strings.Contains(call[2], "[User Request]\nyour turn") {
		t.Errorf("Unexpected invocation: %q", call)
	}
}

func TestCLICompleterErrors(t *testing.T) {
	stubCommand(t, "", errors.New("exit status 1"))
	c, _ := newCLICompleter("codex", "", time.Second, 0)
	if _, err := c.Complete(context.Background(), "", "x"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected the failure to carry stderr, got %v", err)
	}

	stubCommand(t, "   ", nil)
	if _, err := c.Complete(context.Background(), "", "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("abcdefgh", 6); got != "abc..." {
		t.Errorf("got %q", got)
	}
	if got := truncateString("abc", 6); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := truncateString("héllo wörld", 8); got != "héllo..." || !utf8.ValidString(got) {
		t.Errorf("Should cut on a rune boundary, got %q", got)
	}
	if got := truncateString("日本語のエラー", 5); got != "日本..." {
		t.Errorf("got %q", got)
	}
	for _, n := range []int{-1, 0, 2, 3} {
		if got := truncateString("abcdef", n); len(got) > max(n, 0) {
			t.Errorf("maxLen %d: got %q", n, got)
		}
	}
}
