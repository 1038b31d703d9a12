package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/codesession/completion"
)

// Defaults for governor configuration.
const (
	// DefaultSummarizeOver is the captured-output size, in characters,
	// above which output is condensed.
	DefaultSummarizeOver = 4096

	// DefaultBatchParallelism bounds concurrent batch sub-queries.
	DefaultBatchParallelism = 4
)

// ErrClientNotConfigured is returned when a sub-query is issued without a
// completion client.
var ErrClientNotConfigured = errors.New("completion client not configured")

// Logger is an optional interface for governor observability.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort; Logf should not panic.
type Logger interface {
	Logf(format string, args ...any)
}

// Config configures a Governor.
type Config struct {
	// Budget is the shared call budget every sub-query contends for.
	// Required.
	Budget *Budget

	// Client issues the underlying completion requests.
	// If nil, sub-queries return ErrClientNotConfigured.
	Client completion.Client

	// SummarizeOver is the character threshold beyond which captured
	// output is condensed. Zero applies DefaultSummarizeOver.
	SummarizeOver int

	// BatchParallelism bounds the number of concurrent requests issued
	// by BatchSubQuery. Zero applies DefaultBatchParallelism.
	BatchParallelism int

	// Logger is an optional logger for governor events.
	Logger Logger
}

// Governor meters sub-queries against the shared budget and keeps captured
// output within the configured ceiling.
type Governor struct {
	budget    *Budget
	client    completion.Client
	threshold int
	parallel  int
	logger    Logger
}

// New creates a Governor from the given configuration.
func New(cfg Config) (*Governor, error) {
	if cfg.Budget == nil {
		return nil, errors.New("quota: Budget is required")
	}
	threshold := cfg.SummarizeOver
	if threshold <= 0 {
		threshold = DefaultSummarizeOver
	}
	parallel := cfg.BatchParallelism
	if parallel <= 0 {
		parallel = DefaultBatchParallelism
	}
	return &Governor{
		budget:    cfg.Budget,
		client:    cfg.Client,
		threshold: threshold,
		parallel:  parallel,
		logger:    cfg.Logger,
	}, nil
}

// Budget returns the shared budget.
func (g *Governor) Budget() *Budget {
	return g.budget
}

// SubQuery issues one completion request. The budget unit is acquired
// before the request goes out, so a spent budget never reaches the
// provider, and a failed request still counts as an attempt.
func (g *Governor) SubQuery(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", ErrClientNotConfigured
	}
	if err := g.budget.Acquire(); err != nil {
		return "", err
	}
	resp, err := g.client.Complete(ctx, completion.Request{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// BatchSubQuery issues the prompts concurrently with bounded parallelism,
// contending for the shared budget. A batch larger than the remaining
// budget is rejected whole before any request is issued; results come back
// in prompt order.
func (g *Governor) BatchSubQuery(ctx context.Context, prompts []string) ([]string, error) {
	if len(prompts) == 0 {
		return []string{}, nil
	}
	if g.client == nil {
		return nil, ErrClientNotConfigured
	}
	if rem := g.budget.Remaining(); len(prompts) > rem {
		return nil, fmt.Errorf("%w: batch of %d exceeds remaining budget %d",
			ErrExceeded, len(prompts), rem)
	}

	results := make([]string, len(prompts))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.parallel)
	for i, prompt := range prompts {
		grp.Go(func() error {
			// Each call still acquires atomically: concurrent governors
			// sharing the budget can drain it between the pre-check and
			// the fan-out.
			if err := g.budget.Acquire(); err != nil {
				return err
			}
			resp, err := g.client.Complete(gctx, completion.Request{Prompt: prompt})
			if err != nil {
				return fmt.Errorf("batch prompt %d: %w", i, err)
			}
			results[i] = resp.Text
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CondenseOutput bounds captured standard output. Text at or under the
// threshold passes through unchanged; longer text is replaced by a summary
// produced via one SubQuery against the same budget. When summarization is
// impossible the text is truncated deterministically instead; the result
// is always embeddable, never an error.
func (g *Governor) CondenseOutput(ctx context.Context, text string) string {
	if len(text) <= g.threshold {
		return text
	}
	summary, err := g.SubQuery(ctx, summarizePrompt(text))
	if err != nil {
		g.logf("output summarization unavailable, truncating: %v", err)
		return truncate(text, g.threshold)
	}
	return "[output summarized]\n" + summary
}

func (g *Governor) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Logf(format, args...)
	}
}

func summarizePrompt(text string) string {
	return "Summarize the following captured command output in a few sentences, " +
		"preserving key values, counts, and any errors verbatim:\n\n" + text
}

// truncate keeps the head and tail of text within limit characters and
// marks the elision.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	half := limit / 2
	elided := len(runes) - 2*half
	var b strings.Builder
	b.WriteString(string(runes[:half]))
	fmt.Fprintf(&b, "\n... [%d characters elided] ...\n", elided)
	b.WriteString(string(runes[len(runes)-half:]))
	return b.String()
}
