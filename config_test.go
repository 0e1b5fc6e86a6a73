package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONOverlayOnlySetsPresentFields(t *testing.T) {
	cfg := defaultConfig()
	cfg.Roster = "from-env.yaml"

	var overlay map[string]json.RawMessage
	if err := json.Unmarshal([]byte(`{"mafia_count": 3, "execution_rule": "plurality", "auto_continue": false, "seed": 7}`), &overlay); err != nil {
		t.Fatal(err)
	}
	applyJSONOverlay(&cfg, overlay)

	if cfg.MafiaCount != 3 || cfg.ExecutionRule != "plurality" || cfg.AutoContinue || cfg.Seed != 7 {
		t.Errorf("Overlay not applied: %+v", cfg)
	}
	if cfg.Roster != "from-env.yaml" {
		t.Errorf("Absent keys must keep their value, roster = %q", cfg.Roster)
	}
	if cfg.CopCount != 1 {
		t.Errorf("Cop count should stay at its default, got %d", cfg.CopCount)
	}
}

func TestLoadConfigLayers(t *testing.T) {
	t.Setenv("MAX_DAYS", "9")
	t.Setenv("NIGHT_TIE_RULE", "none")
	t.Setenv("MEMORY_ENABLED", "true")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"max_days": 12, "delay_ms": 0}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := loadConfig(path)

	if cfg.MaxDays != 12 {
		t.Errorf("JSON should win over env, max_days = %d", cfg.MaxDays)
	}
	if cfg.NightTieRule != "none" || !cfg.MemoryEnabled {
		t.Errorf("Env values should apply: %q %v", cfg.NightTieRule, cfg.MemoryEnabled)
	}
	gc, err := cfg.gameConfig()
	if err != nil {
		t.Fatalf("gameConfig: %v", err)
	}
	if gc.TurnDelay != 0 || gc.TurnTimeout != 300*time.Second || gc.NightTieRule != NightTieNone {
		t.Errorf("Unexpected game config: %s", gc)
	}
}

func TestMissingConfigFileUsesDefaults(t *testing.T) {
	cfg := loadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if cfg.NominationThreshold != 2 || cfg.ExecutionRule != "majority" || cfg.MemoryWordCap != 300 {
		t.Errorf("Defaults not applied: %+v", cfg)
	}
}

func TestGameConfigRejectsBadRules(t *testing.T) {
	cfg := defaultConfig()
	cfg.MafiaWinRule = "vibes"
	_, err := cfg.gameConfig()
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "mafia_win_rule" || !errors.Is(err, ErrInvalidRule) {
		t.Errorf("Expected a mafia_win_rule ConfigError, got %v", err)
	}

	cfg = defaultConfig()
	cfg.NominationThreshold = 0
	if _, err := cfg.gameConfig(); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("Threshold 0 should be rejected, got %v", err)
	}
}

func TestValidateSeats(t *testing.T) {
	gc := testGameConfig()
	five := newTestTable([]string{"A", "B", "C", "D", "E"}, nil).seats

	if err := gc.validateSeats(five); err != nil {
		t.Errorf("5 players with 2 Mafia and 1 Cop should be valid: %v", err)
	}

	noAgent := append([]Seat(nil), five...)
	noAgent[4].Agent = nil
	if err := gc.validateSeats(noAgent); !errors.Is(err, ErrInvalidRoleConfig) {
		t.Errorf("A seat without an agent should be rejected, got %v", err)
	}

	twoHumans := append([]Seat(nil), five...)
	twoHumans[0].Controller = ControllerHuman
	twoHumans[1].Controller = ControllerHuman
	if err := gc.validateSeats(twoHumans); !errors.Is(err, ErrInvalidRoleConfig) {
		t.Errorf("Two humans should be rejected, got %v", err)
	}

	unnamed := append([]Seat(nil), five...)
	unnamed[2].Name = ""
	if err := gc.validateSeats(unnamed); err == nil {
		t.Error("An unnamed seat should be rejected")
	}
}
