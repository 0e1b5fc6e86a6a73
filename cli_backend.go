package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// runCommand executes a CLI tool and returns its stdout. Tests replace it.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// cliCompleter drives a locally installed model CLI in one-shot mode. The
// system prompt is prepended to the prompt since the CLIs take a single input.
type cliCompleter struct {
	tool    string
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

func newCLICompleter(tool, model string, timeout time.Duration, perMinute int) (*cliCompleter, error) {
	switch tool {
	case "claude", "codex", "gemini", "qwen", "ollama":
	default:
		return nil, fmt.Errorf("%w: no CLI backend for %q", ErrUnknownProvider, tool)
	}
	if tool == "ollama" && model == "" {
		return nil, fmt.Errorf("%w: ollama CLI needs a model", ErrUnknownProvider)
	}
	return &cliCompleter{tool: tool, model: model, timeout: timeout, limiter: newLimiter(perMinute)}, nil
}

// args builds the one-shot invocation for each tool.
func (c *cliCompleter) args(prompt string) []string {
	var args []string
	switch c.tool {
	case "claude":
		args = []string{"-p", prompt}
		if c.model != "" {
			args = append(args, "--model", c.model)
		}
	case "codex":
		args = []string{"exec"}
		if c.model != "" {
			args = append(args, "--model", c.model)
		}
		args = append(args, prompt)
	case "gemini", "qwen":
		if c.model != "" {
			args = append(args, "-m", c.model)
		}
		args = append(args, "-p", prompt)
	case "ollama":
		args = []string{"run", c.model, prompt}
	}
	return args
}

func (c *cliCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	combined := prompt
	if strings.TrimSpace(system) != "" {
		combined = fmt.Sprintf("[System Instructions]\n%s\n\n[User Request]\n%s", system, prompt)
	}

	stdout, stderr, err := runCommand(ctx, c.tool, c.args(combined)...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s CLI timed out after %v: %w", c.tool, c.timeout, ctx.Err())
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", fmt.Errorf("%s CLI canceled: %w", c.tool, ctx.Err())
		}
		return "", fmt.Errorf("%s CLI failed: %w (stderr: %s)", c.tool, err, truncateString(string(stderr), 500))
	}
	text := strings.TrimSpace(string(stdout))
	if text == "" {
		return "", fmt.Errorf("%s CLI: %w", c.tool, ErrEmptyResponse)
	}
	return text, nil
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-3]) + "..."
}
