package pcc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pipecat-cloud/pcc/internal/cloud"
)

// Option configures a Helper built by New.
type Option func(*settings)

type settings struct {
	service    AgentService
	endpoint   Endpoint
	httpClient *http.Client
	logger     *zerolog.Logger
}

// Endpoint locates the Pipecat Cloud API. Empty fields keep their defaults.
// Paths may contain the {org} and {agent} placeholders.
type Endpoint struct {
	BaseURL   string
	AgentPath string
	StartPath string
}

// WithService routes all calls to svc instead of the HTTP API.
func WithService(svc AgentService) Option {
	return func(s *settings) { s.service = svc }
}

// WithEndpoint overrides the API host and paths.
func WithEndpoint(e Endpoint) Option {
	return func(s *settings) { s.endpoint = e }
}

// WithHTTPClient sets the client used for API requests. Timeouts, proxies
// and TLS settings belong on this client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithLogger lets the HTTP transport emit debug logs. The Helper itself
// stays silent either way.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = &l }
}

// cloudService adapts cloud.Client to AgentService.
type cloudService struct {
	client *cloud.Client
}

func newCloudService(token string, s settings) *cloudService {
	opts := cloud.Options{
		BaseURL:    s.endpoint.BaseURL,
		AgentPath:  s.endpoint.AgentPath,
		StartPath:  s.endpoint.StartPath,
		Token:      token,
		HTTPClient: s.httpClient,
		Logger:     s.logger,
	}
	return &cloudService{client: cloud.New(opts)}
}

// NewCloudService exposes an already configured cloud client as an
// AgentService.
func NewCloudService(c *cloud.Client) AgentService {
	return &cloudService{client: c}
}

func (c *cloudService) AgentHealth(ctx context.Context, agentName, org string) (*AgentHealth, error) {
	agent, err := c.client.Agent(ctx, agentName, org)
	if err != nil || agent == nil {
		return nil, err
	}
	return &AgentHealth{
		Name:             agent.Name,
		Ready:            agent.Ready,
		ActiveDeployment: agent.ActiveDeploymentID,
		Region:           agent.Region,
	}, nil
}

func (c *cloudService) StartAgent(ctx context.Context, req StartRequest) (json.RawMessage, error) {
	return c.client.Start(ctx, cloud.StartParams{
		AgentName:       req.AgentName,
		APIKey:          req.APIKey,
		UseDaily:        req.UseDaily,
		Data:            req.Data,
		DailyProperties: req.DailyProperties,
	})
}
