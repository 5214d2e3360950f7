package llmrouter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/providers"
)

func init() {
	retryDelay = time.Millisecond
}

type fakeClient struct {
	calls   int
	failFor int // number of calls to fail before succeeding; 0 means always succeed
	model   string
}

func (f *fakeClient) Generate(_ context.Context, model string, _ []providers.Message, _ float32, _ providers.GenerateOpts) (*providers.Result, error) {
	f.calls++
	f.model = model
	if f.calls <= f.failFor {
		return nil, errors.New("transient provider error")
	}
	return &providers.Result{Content: "ok", Model: model}, nil
}

func TestGenerate_RoutesByPrefix(t *testing.T) {
	openai := &fakeClient{}
	anthropic := &fakeClient{}
	gemini := &fakeClient{}
	cerebras := &fakeClient{}
	bag := &Bag{OpenAI: openai, Anthropic: anthropic, Gemini: gemini, Cerebras: cerebras}

	cases := []struct {
		model string
		want  *fakeClient
	}{
		{"gpt-4o", openai},
		{"o3-mini", openai},
		{"claude-3-7-sonnet-20250219", anthropic},
		{"gemini-2.0-pro-exp-02-05", gemini},
		{"llama3.1-8b", cerebras},
		{"llama-3.3-70b", cerebras},
	}

	for _, tc := range cases {
		if _, err := Generate(context.Background(), bag, tc.model, nil, 0.5, providers.GenerateOpts{}); err != nil {
			t.Fatalf("model %s: unexpected error: %v", tc.model, err)
		}
		if tc.want.model != tc.model {
			t.Fatalf("model %s: routed to wrong client (saw model %q)", tc.model, tc.want.model)
		}
	}
}

func TestGenerate_UnconfiguredProviderIsConfigError(t *testing.T) {
	bag := &Bag{}
	_, err := Generate(context.Background(), bag, "gpt-4o", nil, 0, providers.GenerateOpts{})
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected a Config error, got %v", err)
	}
}

func TestGenerate_UnsupportedModelIsValidationError(t *testing.T) {
	bag := &Bag{}
	_, err := Generate(context.Background(), bag, "not-a-real-model", nil, 0, providers.GenerateOpts{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a Validation error, got %v", err)
	}
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	client := &fakeClient{failFor: 2}
	bag := &Bag{OpenAI: client}

	result, err := Generate(context.Background(), bag, "gpt-4o", nil, 0, providers.GenerateOpts{})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if result.Content != "ok" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
}

func TestGenerate_ExhaustsRetriesAndReturnsProviderError(t *testing.T) {
	client := &fakeClient{failFor: 99}
	bag := &Bag{OpenAI: client}

	_, err := Generate(context.Background(), bag, "gpt-4o", nil, 0, providers.GenerateOpts{})
	if !apperr.Is(err, apperr.KindProviderError) {
		t.Fatalf("expected a ProviderError, got %v", err)
	}
	if client.calls != maxRetries {
		t.Fatalf("expected %d attempts, got %d", maxRetries, client.calls)
	}
}
