package completion

import (
	"context"
	"errors"
	"testing"
)

func TestCompletionModule_HandleGenerateReply(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(ctx context.Context, prompt string) (string, error)
		wantText  string
		wantError string
	}{
		{
			name:     "reply",
			fn:       func(context.Context, string) (string, error) { return "hi there", nil },
			wantText: "hi there",
		},
		{
			name:      "failure travels in the response",
			fn:        func(context.Context, string) (string, error) { return "", errors.New("boom") },
			wantError: "AI error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModuleWithCompleter(testConfig(), &fakeCompleter{CompleteFn: tt.fn})

			resp, err := m.handleGenerateReply(context.Background(), GenerateReplyRequest{JobID: "job-1", Message: "hello"}, nil)
			if err != nil {
				t.Fatalf("handleGenerateReply() error = %v", err)
			}
			if resp.JobID != "job-1" {
				t.Errorf("JobID = %q, want job-1", resp.JobID)
			}
			if resp.Text != tt.wantText || resp.Error != tt.wantError {
				t.Errorf("response = %+v, want text %q error %q", resp, tt.wantText, tt.wantError)
			}
		})
	}
}

func TestCompletionModule_Health(t *testing.T) {
	withKey := NewModuleWithCompleter(testConfig(), &fakeCompleter{})
	if status := withKey.Health(context.Background()); !status.Healthy {
		t.Errorf("Health() = %+v, want healthy", status)
	}

	cfg := DefaultConfig()
	withoutKey := NewModuleWithCompleter(&cfg, &fakeCompleter{})
	status := withoutKey.Health(context.Background())
	if status.Healthy || status.Message != "api key not configured" {
		t.Errorf("Health() = %+v, want unhealthy without key", status)
	}
}
