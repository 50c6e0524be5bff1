// Package ai generates query variations with the Anthropic API. It is
// an optional, best-effort collaborator: every entry point has a
// deterministic fallback, so a missing key or a dead API degrades the
// run instead of failing it.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// ModelDefault is the model used for query variation generation. The
// task is simple enough that the cost-efficient tier is the right one.
const ModelDefault = "claude-3-5-haiku-20241022"

// GetModel returns the model to use, checking CROWDECHO_MODEL first
func GetModel() string {
	if model := os.Getenv("CROWDECHO_MODEL"); model != "" {
		return model
	}
	return ModelDefault
}

// Generator produces query variations for the aggregation engine.
type Generator struct {
	client         *anthropic.Client
	model          string
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
}

// Config holds generator configuration
type Config struct {
	APIKey string      // Anthropic API key (if empty, reads from ANTHROPIC_API_KEY env var)
	Model  string      // Model to use (default: GetModel())
	Retry  RetryConfig // Retry configuration (uses defaults if not specified)
}

// NewGenerator creates a new query variation generator
func NewGenerator(cfg *Config) (*Generator, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var circuitBreaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		circuitBreaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}
	var concurrencySem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		concurrencySem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return &Generator{
		client:         &client,
		model:          model,
		retry:          retry,
		circuitBreaker: circuitBreaker,
		concurrencySem: concurrencySem,
	}, nil
}

// GenerateVariations asks the model for n distinct search queries built
// from the seed. The seed itself is always the first element of the
// result. Returns an error when the API is unreachable; callers fall
// back to FallbackQueries.
func (g *Generator) GenerateVariations(ctx context.Context, seed string, n int) ([]string, error) {
	if n <= 0 {
		return []string{seed}, nil
	}

	prompt := fmt.Sprintf(`Generate %d distinct search queries for finding online discussion about the topic below.
Mix angles: opinions, debates, reviews, comparisons, questions people ask.
Keep each query short (2-6 words) and self-contained.

Topic: %q

Return only the queries, one per line.`, n, seed)

	text, err := g.complete(ctx, "query variations", prompt)
	if err != nil {
		return nil, err
	}

	queries := parseQueryLines(text, n)
	if len(queries) == 0 {
		return nil, fmt.Errorf("model returned no usable queries")
	}
	return prependSeed(seed, queries, n+1), nil
}

// GenerateEmergencyQueries produces high-yield follow-up queries when a
// run is short of its target by deficit items. It never fails: an API
// error falls back to the deterministic template list.
func (g *Generator) GenerateEmergencyQueries(ctx context.Context, seed string, deficit int, successfulPatterns []string) []string {
	patterns := "none identified"
	if len(successfulPatterns) > 0 {
		patterns = strings.Join(successfulPatterns, "; ")
	}

	prompt := fmt.Sprintf(`We need %d more comments to reach a collection target.
Original query: %q

Generate 10 high-yield query variations likely to surface many comments. Focus on:
1. Controversial or discussion-heavy angles on the topic
2. Questions that encourage responses
3. Popular trends related to the topic
4. Broader related topics with more content

Successful patterns so far: %s

Return only the queries, one per line.`, deficit, seed, patterns)

	text, err := g.complete(ctx, "emergency queries", prompt)
	if err != nil {
		return FallbackQueries(seed)
	}
	queries := parseQueryLines(text, 10)
	if len(queries) == 0 {
		return FallbackQueries(seed)
	}
	return queries
}

// complete runs one prompt through the Messages API with retry and
// returns the concatenated text blocks.
func (g *Generator) complete(ctx context.Context, operation, prompt string) (string, error) {
	var response *anthropic.Message
	err := g.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := g.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(g.model),
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// FallbackQueries is the deterministic variation list used when the
// model is unavailable. Order and content are fixed.
func FallbackQueries(seed string) []string {
	return []string{
		seed + " controversy",
		seed + " debate",
		seed + " opinions",
		seed + " discussion",
		seed + " reviews",
		"why " + seed,
		"best " + seed,
		"worst " + seed,
		seed + " explained",
		seed + " truth",
	}
}

// parseQueryLines extracts up to max queries from model output: one per
// line, stripped of numbering, bullets and quotes, duplicates dropped.
func parseQueryLines(text string, max int) []string {
	var queries []string
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(line)
		q = strings.TrimLeft(q, "0123456789.)- *\t")
		q = strings.Trim(q, `"'`)
		q = strings.TrimSpace(q)
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		seen[strings.ToLower(q)] = true
		queries = append(queries, q)
		if len(queries) == max {
			break
		}
	}
	return queries
}

// prependSeed puts the seed first and drops any duplicate of it from
// the generated list, capping the total at max.
func prependSeed(seed string, queries []string, max int) []string {
	out := []string{seed}
	for _, q := range queries {
		if strings.EqualFold(q, seed) {
			continue
		}
		out = append(out, q)
		if len(out) == max {
			break
		}
	}
	return out
}
