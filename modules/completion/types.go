package completion

// GenerateReplyRequest is the payload of the generate-reply service.
type GenerateReplyRequest struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// GenerateReplyResponse carries either the reply text or a failure
// description.
type GenerateReplyResponse struct {
	JobID string `json:"job_id"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}
