package completion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeCompleter struct {
	CompleteFn func(ctx context.Context, prompt string) (string, error)
	calls      int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.CompleteFn(ctx, prompt)
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.APIKey = "sk-test"
	cfg.RequestTimeout = time.Second
	return &cfg
}

func TestWorker_Generate(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		fn        func(ctx context.Context, prompt string) (string, error)
		wantText  string
		wantError string
		wantCalls int
	}{
		{
			name: "success",
			fn: func(_ context.Context, prompt string) (string, error) {
				return "echo: " + prompt, nil
			},
			wantText:  "echo: hello",
			wantCalls: 1,
		},
		{
			name: "upstream failure",
			fn: func(context.Context, string) (string, error) {
				return "", errors.New("rate limited")
			},
			wantError: "AI error: rate limited",
			wantCalls: 1,
		},
		{
			name: "missing api key",
			config: func() *Config {
				cfg := DefaultConfig()
				return &cfg
			}(),
			fn: func(context.Context, string) (string, error) {
				return "unreachable", nil
			},
			wantError: "AI error: completion API key is not configured",
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			if cfg == nil {
				cfg = testConfig()
			}
			fake := &fakeCompleter{CompleteFn: tt.fn}
			w := NewWorker(cfg, fake, nil)

			got := w.Generate(context.Background(), "hello")
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", got.Error, tt.wantError)
			}
			if fake.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", fake.calls, tt.wantCalls)
			}
		})
	}
}

func TestWorker_GenerateAppliesRequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond

	fake := &fakeCompleter{CompleteFn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	got := NewWorker(cfg, fake, nil).Generate(context.Background(), "slow")
	if !got.Failed() {
		t.Fatal("Generate() should fail once the request timeout elapses")
	}
	if !strings.HasPrefix(got.Error, "AI error: ") || !strings.Contains(got.Error, "deadline exceeded") {
		t.Errorf("Error = %q", got.Error)
	}
}

func TestConfig_RedactsAPIKey(t *testing.T) {
	cfg := testConfig()
	if strings.Contains(cfg.String(), "sk-test") {
		t.Errorf("String() leaks the key: %s", cfg.String())
	}
	if got := cfg.LogValue().String(); strings.Contains(got, "sk-test") {
		t.Errorf("LogValue() leaks the key: %s", got)
	}
}
