package pcc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid matches every *ValidationError.
	ErrInvalid = errors.New("invalid input")
	// ErrAgentNotHealthy matches every *AgentNotHealthyError.
	ErrAgentNotHealthy = errors.New("agent not healthy")
	// ErrNoData is returned when a start succeeds without a usable session link.
	ErrNoData = errors.New("start request succeeded but returned no data")
)

// ValidationError reports a request rejected before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// UpstreamError wraps an error reported by the agent service.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("error %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// AgentNotHealthyError reports an agent that is missing or not ready.
type AgentNotHealthyError struct {
	Agent string
}

func (e *AgentNotHealthyError) Error() string {
	return fmt.Sprintf("agent '%s' does not exist or is not in a healthy state", e.Agent)
}

func (e *AgentNotHealthyError) Is(target error) bool { return target == ErrAgentNotHealthy }
