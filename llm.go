package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Completer is the model invocation boundary: one system prompt, one user
// prompt, one text answer.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type langchainCompleter struct {
	llm      llms.Model
	callOpts []llms.CallOption
	limiter  *rate.Limiter // nil = unlimited
}

func (c *langchainCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := c.llm.GenerateContent(ctx, messages, c.callOpts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// buildCallOpts builds LLM call options from the config.
func buildCallOpts(cfg AppConfig) []llms.CallOption {
	var opts []llms.CallOption

	if cfg.Temperature != "" {
		if f, err := strconv.ParseFloat(cfg.Temperature, 64); err == nil {
			opts = append(opts, llms.WithTemperature(f))
		} else {
			log.Printf("LLM: invalid temperature %q: %v", cfg.Temperature, err)
		}
	}

	if cfg.Thinking != "" {
		mode := llms.ThinkingMode(cfg.Thinking)
		switch mode {
		case llms.ThinkingModeNone, llms.ThinkingModeLow, llms.ThinkingModeMedium, llms.ThinkingModeHigh, llms.ThinkingModeAuto:
			opts = append(opts, llms.WithThinkingMode(mode))
		default:
			log.Printf("LLM: invalid thinking %q (valid: none, low, medium, high, auto)", cfg.Thinking)
		}
	}

	return opts
}

// newLimiter turns requests per minute into a token bucket. 0 = unlimited.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// newModel builds the langchaingo model for a provider.
func newModel(cfg AppConfig, provider, model string) (llms.Model, error) {
	httpClient := providerHTTPClient()
	openaiLike := func(baseURL, token string) (llms.Model, error) {
		opts := []openai.Option{openai.WithModel(model)}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		if token != "" {
			opts = append(opts, openai.WithToken(token))
		}
		if httpClient != nil {
			opts = append(opts, openai.WithHTTPClient(httpClient))
		}
		return openai.New(opts...)
	}

	switch strings.ToLower(provider) {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(model), ollama.WithServerURL(cfg.OllamaURL)}
		if httpClient != nil {
			opts = append(opts, ollama.WithHTTPClient(httpClient))
		}
		return ollama.New(opts...)
	case "openai":
		return openaiLike("", cfg.OpenAIAPIKey)
	case "anthropic", "claude":
		opts := []anthropic.Option{anthropic.WithModel(model)}
		if cfg.AnthropicAPIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.AnthropicAPIKey))
		}
		if httpClient != nil {
			opts = append(opts, anthropic.WithHTTPClient(httpClient))
		}
		return anthropic.New(opts...)
	case "google", "gemini":
		opts := []googleai.Option{googleai.WithDefaultModel(model)}
		if cfg.GeminiAPIKey != "" {
			opts = append(opts, googleai.WithAPIKey(cfg.GeminiAPIKey))
		}
		return googleai.New(context.Background(), opts...)
	case "groq":
		return openaiLike("https://api.groq.com/openai/v1", cfg.GroqAPIKey)
	case "openrouter":
		return openaiLike("https://openrouter.ai/api/v1", cfg.OpenRouterAPIKey)
	case "xai", "grok":
		return openaiLike("https://api.x.ai/v1", cfg.XAIAPIKey)
	case "openai-compatible":
		if cfg.CompatibleURL == "" {
			return nil, fmt.Errorf("%w: compatible_url is required for openai-compatible", ErrUnknownProvider)
		}
		return openaiLike(cfg.CompatibleURL, cfg.OpenAIAPIKey)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
}

func newLangchainCompleter(cfg AppConfig, provider, model string) (*langchainCompleter, error) {
	llm, err := newModel(cfg, provider, model)
	if err != nil {
		return nil, fmt.Errorf("init %s (%s): %w", provider, model, err)
	}
	log.Printf("LLM: %s model=%s", provider, model)
	return &langchainCompleter{llm: llm, callOpts: buildCallOpts(cfg), limiter: newLimiter(cfg.RequestsPerMinute)}, nil
}

// llmAgent plays through a Completer. Transport errors are retried with
// exponential backoff; unparseable answers are not, they become abstains.
type llmAgent struct {
	name       string
	completer  Completer
	maxRetries int
	backoff    time.Duration
}

func newLLMAgent(name string, c Completer, maxRetries int) *llmAgent {
	return &llmAgent{name: name, completer: c, maxRetries: maxRetries, backoff: 2 * time.Second}
}

func (a *llmAgent) Speak(ctx context.Context, tc TurnContext) (Turn, error) { return a.turn(ctx, tc) }

func (a *llmAgent) Vote(ctx context.Context, tc TurnContext) (Turn, error) { return a.turn(ctx, tc) }

func (a *llmAgent) NightAction(ctx context.Context, tc TurnContext) (Turn, error) {
	return a.turn(ctx, tc)
}

func (a *llmAgent) turn(ctx context.Context, tc TurnContext) (Turn, error) {
	system := buildSystemPrompt(tc)
	prompt := buildTurnPrompt(tc)
	text, err := a.complete(ctx, system, prompt)
	LogPromptExchange(a.name, tc.TurnNumber, system, prompt, text)
	if err != nil {
		return Turn{}, err
	}
	t, err := parseTurn(text)
	if err != nil {
		return Turn{}, fmt.Errorf("%s: %w", a.name, err)
	}
	return t, nil
}

func (a *llmAgent) Reflect(ctx context.Context, rc ReflectionContext) (string, error) {
	system := buildReflectionSystemPrompt(rc)
	prompt := buildReflectionPrompt(rc)
	text, err := a.complete(ctx, system, prompt)
	LogPromptExchange(a.name, 0, system, prompt, text)
	if err != nil {
		return "", err
	}
	return parseReflection(text), nil
}

func (a *llmAgent) complete(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			wait := a.backoff << (attempt - 1)
			log.Printf("LLM: %s retry %d/%d in %s: %v", a.name, attempt, a.maxRetries, wait, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
		text, err := a.completer.Complete(ctx, system, prompt)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = ErrEmptyResponse
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%s: %d attempts failed: %w", a.name, a.maxRetries+1, lastErr)
}
