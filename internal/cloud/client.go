package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL   = "https://api.pipecat.daily.co"
	DefaultAgentPath = "/v1/organizations/{org}/services/{agent}"
	DefaultStartPath = "/v1/public/{agent}/start"
	DefaultTimeout   = 30 * time.Second
)

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	BaseURL   string
	AgentPath string
	StartPath string
	// Token authenticates organization-scoped calls such as Agent.
	Token      string
	HTTPClient *http.Client
	// Logger receives debug request logs. Nil disables logging.
	Logger *zerolog.Logger
}

// Client talks to the Pipecat Cloud REST API. It does not retry.
type Client struct {
	base      string
	agentPath string
	startPath string
	token     string
	http      *http.Client
	log       zerolog.Logger
	stats     *Stats
}

// Agent is the service record returned by the agent endpoint.
type Agent struct {
	Name               string `json:"name"`
	Ready              bool   `json:"ready"`
	ActiveDeploymentID string `json:"activeDeploymentId"`
	Region             string `json:"region"`
}

// StartParams describes a start call. Data and DailyProperties must already
// be JSON text; they are embedded into the request body unchanged.
type StartParams struct {
	AgentName       string
	APIKey          string
	UseDaily        bool
	Data            string
	DailyProperties string
}

type startBody struct {
	CreateDailyRoom     bool            `json:"createDailyRoom"`
	Body                json.RawMessage `json:"body"`
	DailyRoomProperties json.RawMessage `json:"dailyRoomProperties,omitempty"`
}

func New(opts Options) *Client {
	c := &Client{
		base:      strings.TrimRight(firstNonEmpty(opts.BaseURL, DefaultBaseURL), "/"),
		agentPath: firstNonEmpty(opts.AgentPath, DefaultAgentPath),
		startPath: firstNonEmpty(opts.StartPath, DefaultStartPath),
		token:     opts.Token,
		http:      opts.HTTPClient,
		log:       zerolog.Nop(),
		stats:     NewStats(),
	}
	if opts.Logger != nil {
		c.log = *opts.Logger
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	return c
}

// Stats returns the request counters accumulated by this client.
func (c *Client) Stats() *Stats { return c.stats }

// Agent fetches the service record for agentName in org. A missing agent or
// an empty response yields (nil, nil).
func (c *Client) Agent(ctx context.Context, agentName, org string) (*Agent, error) {
	if c.token == "" {
		return nil, fmt.Errorf("pipecat token missing; set token in config or PIPECAT_TOKEN")
	}
	var agent *Agent
	status, err := c.doJSON(ctx, http.MethodGet, c.expand(c.agentPath, org, agentName), c.token, nil, &agent)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// Start asks the service to start a new agent session. The raw response
// body is returned; an empty or null body yields nil.
func (c *Client) Start(ctx context.Context, p StartParams) (json.RawMessage, error) {
	body := startBody{CreateDailyRoom: p.UseDaily, Body: json.RawMessage(`{}`)}
	if p.Data != "" {
		body.Body = json.RawMessage(p.Data)
	}
	if p.DailyProperties != "" {
		body.DailyRoomProperties = json.RawMessage(p.DailyProperties)
	}
	var raw json.RawMessage
	if _, err := c.doJSON(ctx, http.MethodPost, c.expand(c.startPath, "", p.AgentName), p.APIKey, body, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

func (c *Client) expand(path, org, agent string) string {
	r := strings.NewReplacer("{org}", url.PathEscape(org), "{agent}", url.PathEscape(agent))
	return c.base + r.Replace(path)
}

// doJSON sends body as JSON and decodes a 2xx response into out. The HTTP
// status is returned whenever a response was received.
func (c *Client) doJSON(ctx context.Context, method, endpoint, token string, body interface{}, out interface{}) (int, error) {
	start := time.Now()
	status, err := c.roundTrip(ctx, method, endpoint, token, body, out)
	elapsed := time.Since(start)
	c.stats.RecordRequest(elapsed)
	if err != nil {
		c.stats.RecordError()
	}
	c.log.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", status).
		Dur("duration", elapsed).
		Err(err).
		Msg("pipecat api request")
	return status, err
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint, token string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, parseAPIError(resp.StatusCode, payload)
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
