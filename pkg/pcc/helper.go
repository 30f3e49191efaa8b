// Package pcc starts Pipecat Cloud agents from Go programs.
//
//	h, err := pcc.New(token, "my-org")
//	if err != nil {
//		return err
//	}
//	link, err := h.StartAgent(ctx, pcc.StartRequest{
//		AgentName: "my-agent",
//		APIKey:    "pk_...",
//		UseDaily:  true,
//	})
package pcc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Helper starts Pipecat Cloud agents on behalf of one organization.
//
// A Helper holds only its credentials and the service it talks to, so one
// instance can serve any number of sequential or concurrent starts. It never
// writes to stdout, stderr or a logger.
type Helper struct {
	token string
	org   string
	svc   AgentService
}

// New returns a Helper for the given credentials. Unless WithService is
// given, requests go to the Pipecat Cloud HTTP API.
func New(token, org string, opts ...Option) (*Helper, error) {
	if token == "" {
		return nil, &ValidationError{Field: "token", Message: "token is required"}
	}
	if org == "" {
		return nil, &ValidationError{Field: "org", Message: "org is required"}
	}
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	svc := s.service
	if svc == nil {
		svc = newCloudService(token, s)
	}
	return &Helper{token: token, org: org, svc: svc}, nil
}

// NewWithService is New with an explicit agent service.
func NewWithService(token, org string, svc AgentService) (*Helper, error) {
	if svc == nil {
		return nil, errors.New("agent service is required")
	}
	return New(token, org, WithService(svc))
}

// Org returns the organization the helper operates in.
func (h *Helper) Org() string { return h.org }

// StartAgent checks that the agent is healthy, starts it and returns the
// Daily session link (<room>?t=<token>).
//
// Inputs are validated before anything goes over the wire. The health check
// always precedes the start call and no call is retried. A start that
// succeeds without a Daily room, including every start with UseDaily unset,
// returns ErrNoData.
func (h *Helper) StartAgent(ctx context.Context, req StartRequest) (string, error) {
	if err := validateStart(req); err != nil {
		return "", err
	}

	health, err := h.svc.AgentHealth(ctx, req.AgentName, h.org)
	if err != nil {
		return "", &UpstreamError{Op: "checking agent health", Err: err}
	}
	if health == nil || !health.Ready {
		return "", &AgentNotHealthyError{Agent: req.AgentName}
	}

	data, err := h.svc.StartAgent(ctx, req)
	if err != nil {
		return "", &UpstreamError{Op: "starting agent", Err: err}
	}
	if isEmptyJSON(data) {
		return "", ErrNoData
	}

	if req.UseDaily {
		var grant StartResponse
		if json.Unmarshal(data, &grant) == nil && grant.DailyRoom != "" && grant.DailyToken != "" {
			return fmt.Sprintf("%s?t=%s", grant.DailyRoom, grant.DailyToken), nil
		}
	}
	return "", ErrNoData
}

func validateStart(req StartRequest) error {
	if req.AgentName == "" {
		return &ValidationError{Field: "agent_name", Message: "agent_name is required"}
	}
	if req.APIKey == "" {
		return &ValidationError{Field: "api_key", Message: "api_key is required"}
	}
	if req.DailyProperties != "" {
		if err := checkJSON(req.DailyProperties); err != nil {
			return &ValidationError{Field: "daily_properties", Message: "invalid JSON format for daily_properties: " + err.Error()}
		}
	}
	if req.Data != "" {
		if err := checkJSON(req.Data); err != nil {
			return &ValidationError{Field: "data", Message: "invalid JSON format for data: " + err.Error()}
		}
	}
	return nil
}

// checkJSON reports the decoder's diagnostic for malformed input.
func checkJSON(s string) error {
	var v any
	return json.Unmarshal([]byte(s), &v)
}

// isEmptyJSON treats a missing body and the empty values null, {}, [] and ""
// as "no data".
func isEmptyJSON(data json.RawMessage) bool {
	if len(data) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	}
	return false
}
