package completion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/ai-support-chat/domain/job"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// CompletionAdapter submits jobs to the generate-reply service over the
// service container.
type CompletionAdapter struct {
	container mono.ServiceContainer
}

// NewCompletionAdapter creates a new CompletionAdapter.
func NewCompletionAdapter(container mono.ServiceContainer) *CompletionAdapter {
	return &CompletionAdapter{container: container}
}

// Execute runs one job on the completion module.
func (a *CompletionAdapter) Execute(ctx context.Context, j *job.Job) (job.Result, error) {
	req := GenerateReplyRequest{JobID: j.ID, Message: j.Message}
	var resp GenerateReplyResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"generate-reply",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return job.Result{}, fmt.Errorf("generate-reply request failed: %w", err)
	}

	if resp.Error != "" {
		return job.Failure(resp.Error), nil
	}
	return job.Success(resp.Text), nil
}
