package cloud

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the Pipecat Cloud API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("pipecat api status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("pipecat api status %d: %s", e.Status, e.Message)
}

// parseAPIError reads the {"code": ..., "error": ...} envelope the API uses
// for failures, falling back to the raw body text.
func parseAPIError(status int, body []byte) error {
	var envelope struct {
		Code   json.RawMessage `json:"code"`
		Error  string          `json:"error"`
		Detail string          `json:"detail"`
	}
	apiErr := &APIError{Status: status}
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.Code = strings.Trim(string(envelope.Code), `"`)
		apiErr.Message = firstNonEmpty(envelope.Error, envelope.Detail)
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
