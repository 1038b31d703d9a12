// Package main is the stock session driver binary. Runtime provisioners
// launch it inside the isolated environment; it speaks the line-delimited
// session protocol on stdin/stdout and logs diagnostics to stderr, which
// the controller drains into its own logger.
//
// Configuration arrives through the environment, injected by the
// controller via the provisioning spec:
//
//   - SESSION_BUDGET_MAX: sub-query call budget (default 10)
//   - SESSION_SUMMARIZE_OVER: output-condensation threshold in characters
//   - SESSION_MODEL: completion model identifier
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY: completion provider selection
//
// Without an API key the driver still runs; fragments calling llm or
// llm_batch fail with an in-language error and oversized output is
// truncated instead of summarized.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jonwraymond/codesession/completion"
	"github.com/jonwraymond/codesession/completion/anthropic"
	"github.com/jonwraymond/codesession/completion/openai"
	"github.com/jonwraymond/codesession/driver"
	"github.com/jonwraymond/codesession/driver/luaengine"
	"github.com/jonwraymond/codesession/quota"
)

// Default model identifiers applied when SESSION_MODEL is unset.
const (
	defaultAnthropicModel = "claude-3-5-sonnet-20241022"
	defaultOpenAIModel    = "gpt-4o-mini"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("driver: ")

	governor, err := buildGovernor()
	if err != nil {
		log.Fatalf("configure governor: %v", err)
	}

	engine, err := luaengine.New(luaengine.Options{Governor: governor})
	if err != nil {
		log.Fatalf("create engine: %v", err)
	}
	defer engine.Close()

	d, err := driver.New(driver.Config{
		Engine:   engine,
		In:       os.Stdin,
		Out:      os.Stdout,
		Governor: governor,
		Logger:   logger{},
	})
	if err != nil {
		log.Fatalf("create driver: %v", err)
	}

	// End-of-stream on stdin is the orderly shutdown signal; SIGTERM
	// covers container runtimes that stop the process directly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("run: %v", err)
	}
}

// buildGovernor assembles the budget, completion client, and output
// condensation from the environment.
func buildGovernor() (*quota.Governor, error) {
	maxCalls := intEnv(driver.EnvBudgetMax, driver.DefaultBudgetMax)

	client, err := completionClient()
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Printf("no completion provider configured, model calls disabled")
	}

	return quota.New(quota.Config{
		Budget:        quota.NewBudget(maxCalls),
		Client:        client,
		SummarizeOver: intEnv(driver.EnvSummarizeOver, 0),
		Logger:        logger{},
	})
}

// completionClient selects the provider from the injected credentials:
// Anthropic when its key is present, OpenAI otherwise, none when neither
// key is set.
func completionClient() (completion.Client, error) {
	model := os.Getenv(driver.EnvModel)

	if key := os.Getenv(driver.EnvAnthropicKey); key != "" {
		if model == "" {
			model = defaultAnthropicModel
		}
		return anthropic.NewFromAPIKey(key, model)
	}
	if key := os.Getenv(driver.EnvOpenAIKey); key != "" {
		if model == "" {
			model = defaultOpenAIModel
		}
		return openai.NewFromAPIKey(key, model)
	}
	return nil, nil
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("ignoring %s=%q: not a non-negative integer", name, raw)
		return fallback
	}
	return n
}

// logger adapts the stdlib logger to the package Logger interfaces.
type logger struct{}

func (logger) Logf(format string, args ...any) {
	log.Printf(format, args...)
}
