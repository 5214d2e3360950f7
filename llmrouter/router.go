// Package llmrouter dispatches a chat turn to the right provider by
// model-name prefix and applies the shared retry policy. No fallback
// between providers is attempted: a failing provider's error propagates
// directly to the caller after retries are exhausted.
package llmrouter

import (
	"context"
	"strings"
	"time"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/log"
	"github.com/ghiac/chatforge/providers"
)

const (
	maxRetries  = 3
	retryFactor = 2
)

// retryDelay is the base backoff before the second attempt; var rather than
// const so tests can shrink it.
var retryDelay = time.Second

// Bag holds one client per provider family. A nil field means that
// provider's credentials were not configured; routing to it fails with a
// Config error instead of a nil-pointer panic.
type Bag struct {
	OpenAI    providers.Client
	Anthropic providers.Client
	Gemini    providers.Client
	Cerebras  providers.Client
}

// Generate routes model to the matching provider and runs the shared retry
// policy around the call: 3 attempts, exponential backoff starting at 1s.
func Generate(ctx context.Context, bag *Bag, model string, messages []providers.Message, temperature float32, opts providers.GenerateOpts) (*providers.Result, error) {
	client, err := selectClient(bag, model)
	if err != nil {
		return nil, err
	}

	var lastErr error
	delay := retryDelay
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := client.Generate(ctx, model, messages, temperature, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Log.Warnf("llmrouter: attempt %d/%d for model %s failed: %v", attempt+1, maxRetries, model, err)
		if attempt == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= retryFactor
	}
	return nil, apperr.WrapProviderError(lastErr, "model %s failed after %d attempts", model, maxRetries)
}

func selectClient(bag *Bag, model string) (providers.Client, error) {
	switch {
	case strings.HasPrefix(model, "gpt-") || model == "o3-mini":
		if bag.OpenAI == nil {
			return nil, apperr.Config("OpenAI is not configured")
		}
		return bag.OpenAI, nil
	case strings.HasPrefix(model, "claude-"):
		if bag.Anthropic == nil {
			return nil, apperr.Config("Anthropic is not configured")
		}
		return bag.Anthropic, nil
	case strings.HasPrefix(model, "gemini-"):
		if bag.Gemini == nil {
			return nil, apperr.Config("Gemini is not configured")
		}
		return bag.Gemini, nil
	case hasCerebrasPrefix(model):
		if bag.Cerebras == nil {
			return nil, apperr.Config("Cerebras is not configured")
		}
		return bag.Cerebras, nil
	default:
		return nil, apperr.Validation("unsupported model: %s", model)
	}
}
