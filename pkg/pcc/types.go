package pcc

import (
	"context"
	"encoding/json"
)

// AgentHealth is the health record the service reports for a deployed agent.
type AgentHealth struct {
	Name             string `json:"name"`
	Ready            bool   `json:"ready"`
	ActiveDeployment string `json:"activeDeploymentId,omitempty"`
	Region           string `json:"region,omitempty"`
}

// StartRequest holds the parameters of a single agent start.
type StartRequest struct {
	AgentName string
	APIKey    string
	// UseDaily asks the service to provision a Daily WebRTC room for the session.
	UseDaily bool
	// Data is an optional JSON document handed to the agent at startup.
	Data string
	// DailyProperties is an optional JSON object of Daily room properties.
	DailyProperties string
}

// StartResponse is the part of a start response that carries the room grant.
type StartResponse struct {
	DailyRoom  string `json:"dailyRoom"`
	DailyToken string `json:"dailyToken"`
}

// AgentService is the remote agent-management API the helper drives.
// A nil record (or empty body) together with a nil error means the call
// succeeded without returning data.
type AgentService interface {
	AgentHealth(ctx context.Context, agentName, org string) (*AgentHealth, error)
	StartAgent(ctx context.Context, req StartRequest) (json.RawMessage, error)
}
