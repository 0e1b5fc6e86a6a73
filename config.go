package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all process configuration.
// Priority (lowest → highest): defaults < .env/env vars < JSON config file < CLI flags.
type AppConfig struct {
	// Storage
	DB            string `json:"db"`             // sqlite connection string
	Dev           bool   `json:"dev"`            // dev mode: verbose logging, db dumps
	MemoryDir     string `json:"memory_dir"`     // flat-file memory store; empty = sqlite
	TranscriptDir string `json:"transcript_dir"` // per-game transcript files; empty = off

	// Game
	Roster              string `json:"roster"`               // path to roster YAML
	Games               int    `json:"games"`                // games to play back to back
	Seed                int64  `json:"seed"`                 // 0 = time based
	DelayMS             int    `json:"delay_ms"`             // pause between turns
	AutoContinue        bool   `json:"auto_continue"`        // false = wait for Enter every turn
	MemoryEnabled       bool   `json:"memory_enabled"`       // cross-game reflection
	MemoryWordCap       int    `json:"memory_word_cap"`      // max words per memory record
	RevealRoleOnDeath   bool   `json:"reveal_role_on_death"` // announce roles of the dead
	MafiaCount          int    `json:"mafia_count"`
	CopCount            int    `json:"cop_count"`
	MinPlayers          int    `json:"min_players"`
	MaxDays             int    `json:"max_days"`
	NominationThreshold int    `json:"nomination_threshold"`
	ExecutionRule       string `json:"execution_rule"` // majority | plurality
	NightTieRule        string `json:"night_tie_rule"` // first | none
	MafiaWinRule        string `json:"mafia_win_rule"` // parity | elimination
	TurnTimeoutS        int    `json:"turn_timeout_s"`
	HumanTimeoutS       int    `json:"human_timeout_s"`

	// Providers
	MaxRetries        int    `json:"max_retries"`
	RequestsPerMinute int    `json:"requests_per_minute"` // per agent, 0 = unlimited
	Temperature       string `json:"temperature"`         // float 0-1 as string
	Thinking          string `json:"thinking"`            // none | low | medium | high | auto
	OpenAIAPIKey      string `json:"openai_api_key"`
	AnthropicAPIKey   string `json:"anthropic_api_key"`
	GeminiAPIKey      string `json:"gemini_api_key"`
	GroqAPIKey        string `json:"groq_api_key"`
	OpenRouterAPIKey  string `json:"openrouter_api_key"`
	XAIAPIKey         string `json:"xai_api_key"`
	OllamaURL         string `json:"ollama_url"`
	CompatibleURL     string `json:"compatible_url"` // base URL for openai-compatible
	NarratorProvider  string `json:"narrator_provider"`
	NarratorModel     string `json:"narrator_model"`

	// Spectators
	SpectatorAddr string `json:"spectator_addr"` // e.g. :8080, empty = off

	// Logging (extended diagnostics, off by default)
	LogOutputDir string `json:"log_output_dir"`
	LogPrompts   bool   `json:"log_prompts"`
	LogRequests  bool   `json:"log_requests"`
	LogDB        bool   `json:"log_db"`
	LogDebug     bool   `json:"log_debug"`
}

func (cfg AppConfig) toLogConfig() LogConfig {
	return LogConfig{
		OutputDir:   cfg.LogOutputDir,
		LogPrompts:  cfg.LogPrompts,
		LogRequests: cfg.LogRequests,
		LogDB:       cfg.LogDB,
		Debug:       cfg.LogDebug || cfg.Dev,
	}
}

func defaultConfig() AppConfig {
	return AppConfig{
		DB:                  "mafia.db",
		Roster:              "roster.yaml",
		Games:               1,
		DelayMS:             1500,
		AutoContinue:        true,
		MemoryWordCap:       300,
		RevealRoleOnDeath:   true,
		MafiaCount:          2,
		CopCount:            1,
		MinPlayers:          5,
		MaxDays:             20,
		NominationThreshold: 2,
		ExecutionRule:       string(ExecutionMajority),
		NightTieRule:        string(NightTieFirst),
		MafiaWinRule:        string(MafiaWinParity),
		TurnTimeoutS:        300,
		HumanTimeoutS:       0,
		MaxRetries:          2,
		OllamaURL:           "http://localhost:11434",
	}
}

// loadConfig builds a config by layering: defaults → .env and env vars → JSON config file.
// CLI flag overrides are applied separately by flagValues.applyTo after flag.Parse.
func loadConfig(configPath string) AppConfig {
	cfg := defaultConfig()

	// .env only fills variables that aren't already set in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Config: failed to read .env: %v", err)
	}

	// Layer 1: env vars
	envStr := os.Getenv
	envBool := func(key string) (val bool, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return false, false
		}
		return v == "1" || v == "true" || v == "yes", true
	}
	envInt := func(key string) (val int, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return 0, false
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Config: ignoring %s=%q: %v", key, v, err)
			return 0, false
		}
		return n, true
	}

	if v := envStr("DB"); v != "" {
		cfg.DB = v
	}
	if v, ok := envBool("DEV"); ok {
		cfg.Dev = v
	}
	if v := envStr("MEMORY_DIR"); v != "" {
		cfg.MemoryDir = v
	}
	if v := envStr("TRANSCRIPT_DIR"); v != "" {
		cfg.TranscriptDir = v
	}
	if v := envStr("ROSTER"); v != "" {
		cfg.Roster = v
	}
	if v, ok := envInt("GAMES"); ok {
		cfg.Games = v
	}
	if v, ok := envInt("SEED"); ok {
		cfg.Seed = int64(v)
	}
	if v, ok := envInt("DELAY_MS"); ok {
		cfg.DelayMS = v
	}
	if v, ok := envBool("AUTO_CONTINUE"); ok {
		cfg.AutoContinue = v
	}
	if v, ok := envBool("MEMORY_ENABLED"); ok {
		cfg.MemoryEnabled = v
	}
	if v, ok := envInt("MEMORY_WORD_CAP"); ok {
		cfg.MemoryWordCap = v
	}
	if v, ok := envBool("REVEAL_ROLE_ON_DEATH"); ok {
		cfg.RevealRoleOnDeath = v
	}
	if v, ok := envInt("MAFIA_COUNT"); ok {
		cfg.MafiaCount = v
	}
	if v, ok := envInt("COP_COUNT"); ok {
		cfg.CopCount = v
	}
	if v, ok := envInt("MIN_PLAYERS"); ok {
		cfg.MinPlayers = v
	}
	if v, ok := envInt("MAX_DAYS"); ok {
		cfg.MaxDays = v
	}
	if v, ok := envInt("NOMINATION_THRESHOLD"); ok {
		cfg.NominationThreshold = v
	}
	if v := envStr("EXECUTION_RULE"); v != "" {
		cfg.ExecutionRule = v
	}
	if v := envStr("NIGHT_TIE_RULE"); v != "" {
		cfg.NightTieRule = v
	}
	if v := envStr("MAFIA_WIN_RULE"); v != "" {
		cfg.MafiaWinRule = v
	}
	if v, ok := envInt("TURN_TIMEOUT_S"); ok {
		cfg.TurnTimeoutS = v
	}
	if v, ok := envInt("HUMAN_TIMEOUT_S"); ok {
		cfg.HumanTimeoutS = v
	}
	if v, ok := envInt("MAX_RETRIES"); ok {
		cfg.MaxRetries = v
	}
	if v, ok := envInt("REQUESTS_PER_MINUTE"); ok {
		cfg.RequestsPerMinute = v
	}
	if v := envStr("TEMPERATURE"); v != "" {
		cfg.Temperature = v
	}
	if v := envStr("THINKING"); v != "" {
		cfg.Thinking = v
	}
	if v := envStr("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := envStr("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := envStr("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := envStr("GROQ_API_KEY"); v != "" {
		cfg.GroqAPIKey = v
	}
	if v := envStr("OPENROUTER_API_KEY"); v != "" {
		cfg.OpenRouterAPIKey = v
	}
	if v := envStr("XAI_API_KEY"); v != "" {
		cfg.XAIAPIKey = v
	}
	if v := envStr("OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := envStr("COMPATIBLE_URL"); v != "" {
		cfg.CompatibleURL = v
	}
	if v := envStr("NARRATOR_PROVIDER"); v != "" {
		cfg.NarratorProvider = v
	}
	if v := envStr("NARRATOR_MODEL"); v != "" {
		cfg.NarratorModel = v
	}
	if v := envStr("SPECTATOR_ADDR"); v != "" {
		cfg.SpectatorAddr = v
	}
	if v := envStr("LOG_OUTPUT_DIR"); v != "" {
		cfg.LogOutputDir = v
	}
	if v, ok := envBool("LOG_PROMPTS"); ok {
		cfg.LogPrompts = v
	}
	if v, ok := envBool("LOG_REQUESTS"); ok {
		cfg.LogRequests = v
	}
	if v, ok := envBool("LOG_DB"); ok {
		cfg.LogDB = v
	}
	if v, ok := envBool("LOG_DEBUG"); ok {
		cfg.LogDebug = v
	}

	// Layer 2: JSON config file: only fields present in the file override env vars
	if data, err := os.ReadFile(configPath); err == nil {
		var overlay map[string]json.RawMessage
		if err := json.Unmarshal(data, &overlay); err != nil {
			log.Printf("Config: failed to parse %s: %v", configPath, err)
		} else {
			applyJSONOverlay(&cfg, overlay)
			log.Printf("Config: loaded from %s", configPath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Config: failed to read %s: %v", configPath, err)
	}

	return cfg
}

// applyJSONOverlay only sets fields that are explicitly present in the JSON map.
func applyJSONOverlay(cfg *AppConfig, m map[string]json.RawMessage) {
	str := func(key string, dst *string) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	str("db", &cfg.DB)
	boolean("dev", &cfg.Dev)
	str("memory_dir", &cfg.MemoryDir)
	str("transcript_dir", &cfg.TranscriptDir)
	str("roster", &cfg.Roster)
	integer("games", &cfg.Games)
	if v, ok := m["seed"]; ok {
		json.Unmarshal(v, &cfg.Seed)
	}
	integer("delay_ms", &cfg.DelayMS)
	boolean("auto_continue", &cfg.AutoContinue)
	boolean("memory_enabled", &cfg.MemoryEnabled)
	integer("memory_word_cap", &cfg.MemoryWordCap)
	boolean("reveal_role_on_death", &cfg.RevealRoleOnDeath)
	integer("mafia_count", &cfg.MafiaCount)
	integer("cop_count", &cfg.CopCount)
	integer("min_players", &cfg.MinPlayers)
	integer("max_days", &cfg.MaxDays)
	integer("nomination_threshold", &cfg.NominationThreshold)
	str("execution_rule", &cfg.ExecutionRule)
	str("night_tie_rule", &cfg.NightTieRule)
	str("mafia_win_rule", &cfg.MafiaWinRule)
	integer("turn_timeout_s", &cfg.TurnTimeoutS)
	integer("human_timeout_s", &cfg.HumanTimeoutS)
	integer("max_retries", &cfg.MaxRetries)
	integer("requests_per_minute", &cfg.RequestsPerMinute)
	str("temperature", &cfg.Temperature)
	str("thinking", &cfg.Thinking)
	str("openai_api_key", &cfg.OpenAIAPIKey)
	str("anthropic_api_key", &cfg.AnthropicAPIKey)
	str("gemini_api_key", &cfg.GeminiAPIKey)
	str("groq_api_key", &cfg.GroqAPIKey)
	str("openrouter_api_key", &cfg.OpenRouterAPIKey)
	str("xai_api_key", &cfg.XAIAPIKey)
	str("ollama_url", &cfg.OllamaURL)
	str("compatible_url", &cfg.CompatibleURL)
	str("narrator_provider", &cfg.NarratorProvider)
	str("narrator_model", &cfg.NarratorModel)
	str("spectator_addr", &cfg.SpectatorAddr)
	str("log_output_dir", &cfg.LogOutputDir)
	boolean("log_prompts", &cfg.LogPrompts)
	boolean("log_requests", &cfg.LogRequests)
	boolean("log_db", &cfg.LogDB)
	boolean("log_debug", &cfg.LogDebug)
}

// flagValues holds pointers to all registered CLI flags.
type flagValues struct {
	configPath        *string
	stats             *bool
	db                *string
	dev               *bool
	memoryDir         *string
	transcriptDir     *string
	roster            *string
	games             *int
	seed              *int64
	delayMS           *int
	autoContinue      *bool
	memoryEnabled     *bool
	revealRoleOnDeath *bool
	executionRule     *string
	nightTieRule      *string
	mafiaWinRule      *string
	spectatorAddr     *string
	logOutputDir      *string
	logPrompts        *bool
	logRequests       *bool
	logDB             *bool
	logDebug          *bool
}

// registerFlags registers all CLI flags and returns pointers to their values.
// Call flag.Parse() after this, then applyTo to layer them over the loaded config.
func registerFlags() flagValues {
	return flagValues{
		configPath:        flag.String("config", "config.json", "path to JSON config file"),
		stats:             flag.Bool("stats", false, "print statistics of archived games and exit"),
		db:                flag.String("db", "", "sqlite database path"),
		dev:               flag.Bool("dev", false, "enable development mode (verbose logging, db dumps)"),
		memoryDir:         flag.String("memory-dir", "", "store player memories as flat files in this directory"),
		transcriptDir:     flag.String("transcript-dir", "", "write public and full transcripts under this directory"),
		roster:            flag.String("roster", "", "path to roster YAML"),
		games:             flag.Int("games", 0, "number of games to play"),
		seed:              flag.Int64("seed", 0, "random seed for seating and roles (0 = time based)"),
		delayMS:           flag.Int("delay-ms", 0, "delay between turns in milliseconds"),
		autoContinue:      flag.Bool("auto-continue", true, "run without waiting for Enter between turns"),
		memoryEnabled:     flag.Bool("memory", false, "enable cross-game player memory"),
		revealRoleOnDeath: flag.Bool("reveal-role-on-death", true, "announce the role of dead players"),
		executionRule:     flag.String("execution-rule", "", "trial rule: majority|plurality"),
		nightTieRule:      flag.String("night-tie-rule", "", "mafia tie rule: first|none"),
		mafiaWinRule:      flag.String("mafia-win-rule", "", "mafia win rule: parity|elimination"),
		spectatorAddr:     flag.String("spectator-addr", "", "serve the public game feed on this address (e.g. :8080)"),
		logOutputDir:      flag.String("log-output-dir", "", "directory for extended log files"),
		logPrompts:        flag.Bool("log-prompts", false, "log every prompt and response per player"),
		logRequests:       flag.Bool("log-requests", false, "log provider and spectator HTTP traffic"),
		logDB:             flag.Bool("log-db", false, "log database dumps"),
		logDebug:          flag.Bool("log-debug", false, "enable debug logging"),
	}
}

// applyTo overlays any CLI flags that were explicitly set onto cfg.
// Flags that were not passed on the command line are ignored (env/JSON values win).
func (fv flagValues) applyTo(cfg *AppConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DB = *fv.db
		case "dev":
			cfg.Dev = *fv.dev
		case "memory-dir":
			cfg.MemoryDir = *fv.memoryDir
		case "transcript-dir":
			cfg.TranscriptDir = *fv.transcriptDir
		case "roster":
			cfg.Roster = *fv.roster
		case "games":
			cfg.Games = *fv.games
		case "seed":
			cfg.Seed = *fv.seed
		case "delay-ms":
			cfg.DelayMS = *fv.delayMS
		case "auto-continue":
			cfg.AutoContinue = *fv.autoContinue
		case "memory":
			cfg.MemoryEnabled = *fv.memoryEnabled
		case "reveal-role-on-death":
			cfg.RevealRoleOnDeath = *fv.revealRoleOnDeath
		case "execution-rule":
			cfg.ExecutionRule = *fv.executionRule
		case "night-tie-rule":
			cfg.NightTieRule = *fv.nightTieRule
		case "mafia-win-rule":
			cfg.MafiaWinRule = *fv.mafiaWinRule
		case "spectator-addr":
			cfg.SpectatorAddr = *fv.spectatorAddr
		case "log-output-dir":
			cfg.LogOutputDir = *fv.logOutputDir
		case "log-prompts":
			cfg.LogPrompts = *fv.logPrompts
		case "log-requests":
			cfg.LogRequests = *fv.logRequests
		case "log-db":
			cfg.LogDB = *fv.logDB
		case "log-debug":
			cfg.LogDebug = *fv.logDebug
		}
	})
}

// GameConfig is the immutable rule set of a game. It is built once from
// AppConfig at startup and passed to every Engine.
type GameConfig struct {
	MafiaCount          int
	CopCount            int
	MinPlayers          int
	MaxDays             int
	NominationThreshold int
	ExecutionRule       ExecutionRule
	NightTieRule        NightTieRule
	MafiaWinRule        MafiaWinRule
	RevealRoleOnDeath   bool
	MemoryEnabled       bool
	MemoryWordCap       int
	TurnDelay           time.Duration
	AutoContinue        bool
	TurnTimeout         time.Duration
	HumanTimeout        time.Duration
	Seed                int64
}

func defaultGameConfig() GameConfig {
	gc, err := defaultConfig().gameConfig()
	if err != nil {
		panic(err)
	}
	return gc
}

// gameConfig converts and validates the game rules.
func (cfg AppConfig) gameConfig() (GameConfig, error) {
	exec, err := parseExecutionRule(cfg.ExecutionRule)
	if err != nil {
		return GameConfig{}, &ConfigError{Field: "execution_rule", Err: err}
	}
	tie, err := parseNightTieRule(cfg.NightTieRule)
	if err != nil {
		return GameConfig{}, &ConfigError{Field: "night_tie_rule", Err: err}
	}
	win, err := parseMafiaWinRule(cfg.MafiaWinRule)
	if err != nil {
		return GameConfig{}, &ConfigError{Field: "mafia_win_rule", Err: err}
	}
	gc := GameConfig{
		MafiaCount:          cfg.MafiaCount,
		CopCount:            cfg.CopCount,
		MinPlayers:          cfg.MinPlayers,
		MaxDays:             cfg.MaxDays,
		NominationThreshold: cfg.NominationThreshold,
		ExecutionRule:       exec,
		NightTieRule:        tie,
		MafiaWinRule:        win,
		RevealRoleOnDeath:   cfg.RevealRoleOnDeath,
		MemoryEnabled:       cfg.MemoryEnabled,
		MemoryWordCap:       cfg.MemoryWordCap,
		TurnDelay:           time.Duration(cfg.DelayMS) * time.Millisecond,
		AutoContinue:        cfg.AutoContinue,
		TurnTimeout:         time.Duration(cfg.TurnTimeoutS) * time.Second,
		HumanTimeout:        time.Duration(cfg.HumanTimeoutS) * time.Second,
		Seed:                cfg.Seed,
	}
	return gc, gc.validate()
}

// validate checks the rules that don't depend on the roster.
func (gc GameConfig) validate() error {
	if gc.MafiaCount < 1 {
		return configErr("mafia_count", ErrInvalidRoleConfig, "need at least one Mafia, got %d", gc.MafiaCount)
	}
	if gc.CopCount < 0 {
		return configErr("cop_count", ErrInvalidRoleConfig, "cop count must be >= 0, got %d", gc.CopCount)
	}
	if gc.MinPlayers < 3 {
		return configErr("min_players", ErrInvalidRoleConfig, "min players must be >= 3, got %d", gc.MinPlayers)
	}
	if gc.NominationThreshold < 1 {
		return configErr("nomination_threshold", ErrInvalidRule, "must be >= 1, got %d", gc.NominationThreshold)
	}
	if gc.MaxDays < 1 {
		return configErr("max_days", ErrInvalidRule, "must be >= 1, got %d", gc.MaxDays)
	}
	if gc.MemoryWordCap < 0 {
		return configErr("memory_word_cap", ErrInvalidRule, "must be >= 0, got %d", gc.MemoryWordCap)
	}
	if _, err := parseExecutionRule(string(gc.ExecutionRule)); err != nil {
		return &ConfigError{Field: "execution_rule", Err: err}
	}
	if _, err := parseNightTieRule(string(gc.NightTieRule)); err != nil {
		return &ConfigError{Field: "night_tie_rule", Err: err}
	}
	if _, err := parseMafiaWinRule(string(gc.MafiaWinRule)); err != nil {
		return &ConfigError{Field: "mafia_win_rule", Err: err}
	}
	return nil
}

// validateSeats checks the roster against the role distribution. Town must
// outnumber the Mafia at the start or the game would be over before turn 1.
func (gc GameConfig) validateSeats(seats []Seat) error {
	if err := gc.validate(); err != nil {
		return err
	}
	n := len(seats)
	if n == 0 {
		return &ConfigError{Field: "roster", Err: ErrNoRoster}
	}
	if n < gc.MinPlayers {
		return configErr("roster", ErrTooFewPlayers, "%d players, need at least %d", n, gc.MinPlayers)
	}
	if gc.MafiaCount+gc.CopCount > n {
		return configErr("roster", ErrInvalidRoleConfig, "%d Mafia + %d Cop exceed %d players", gc.MafiaCount, gc.CopCount, n)
	}
	if gc.MafiaCount >= n-gc.MafiaCount {
		return configErr("mafia_count", ErrInvalidRoleConfig, "%d Mafia need more than %d Town", gc.MafiaCount, n-gc.MafiaCount)
	}

	names := make(map[string]bool)
	humans := 0
	prefs := map[Role]int{}
	for _, s := range seats {
		if s.Name == "" {
			return configErr("roster", ErrInvalidRoleConfig, "player without a name")
		}
		if names[s.Name] {
			return configErr("roster", ErrInvalidRoleConfig, "duplicate player name %q", s.Name)
		}
		names[s.Name] = true
		if s.Agent == nil {
			return configErr("roster", ErrInvalidRoleConfig, "player %q has no agent", s.Name)
		}
		if s.Controller == ControllerHuman {
			humans++
		}
		if s.Preference != "" {
			prefs[s.Preference]++
		}
	}
	if humans > 1 {
		return configErr("roster", ErrInvalidRoleConfig, "at most one human player, got %d", humans)
	}
	if prefs[RoleMafia] > gc.MafiaCount || prefs[RoleCop] > gc.CopCount {
		log.Printf("Config: more role preferences than roles, extra preferences are dealt randomly")
	}
	return nil
}

// isConfigError reports whether err is a fatal setup error.
func isConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func (gc GameConfig) String() string {
	return fmt.Sprintf("mafia=%d cop=%d min=%d threshold=%d execution=%s tie=%s win=%s reveal=%v memory=%v",
		gc.MafiaCount, gc.CopCount, gc.MinPlayers, gc.NominationThreshold,
		gc.ExecutionRule, gc.NightTieRule, gc.MafiaWinRule, gc.RevealRoleOnDeath, gc.MemoryEnabled)
}
