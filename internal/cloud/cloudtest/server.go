// Package cloudtest runs an in-process stand-in for the Pipecat Cloud API.
package cloudtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Agent is an agent deployed on the fake service.
type Agent struct {
	Name  string
	Ready bool
	// Room and Token are granted when a start asks for a Daily room.
	Room  string
	Token string
	// Response, when set, is written verbatim as the start response body.
	Response string
	// StartStatus, when set, fails start calls with this HTTP status.
	StartStatus int
}

// Request is a captured inbound request.
type Request struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

// StartBody mirrors the JSON body of a start request.
type StartBody struct {
	CreateDailyRoom     bool            `json:"createDailyRoom"`
	Body                json.RawMessage `json:"body"`
	DailyRoomProperties json.RawMessage `json:"dailyRoomProperties"`
}

type Server struct {
	URL       string
	Token     string
	Org       string
	PublicKey string

	srv      *httptest.Server
	mu       sync.Mutex
	agents   map[string]Agent
	requests []Request
}

// NewServer starts a fake service that accepts token for organization calls
// and publicKey for start calls.
func NewServer(token, org, publicKey string, agents ...Agent) *Server {
	s := &Server{Token: token, Org: org, PublicKey: publicKey, agents: map[string]Agent{}}
	for _, a := range agents {
		s.agents[a.Name] = a
	}
	mux := http.NewServeMux()
	s.routes(mux)
	s.srv = httptest.NewServer(mux)
	s.URL = s.srv.URL
	return s
}

func (s *Server) Close() { s.srv.Close() }

// SetAgent adds or replaces an agent.
func (s *Server) SetAgent(a Agent) {
	s.mu.Lock()
	s.agents[a.Name] = a
	s.mu.Unlock()
}

// Requests returns every request received so far, in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/organizations/{org}/services/{agent}", func(w http.ResponseWriter, r *http.Request) {
		s.capture(r)
		if r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "401", "Unauthorized")
			return
		}
		if r.PathValue("org") != s.Org {
			writeError(w, http.StatusForbidden, "403", "organization not accessible")
			return
		}
		agent, ok := s.agent(r.PathValue("agent"))
		if !ok {
			writeError(w, http.StatusNotFound, "404", "service not found")
			return
		}
		writeJSON(w, map[string]any{"name": agent.Name, "ready": agent.Ready, "region": "us-west"})
	})
	mux.HandleFunc("POST /v1/public/{agent}/start", func(w http.ResponseWriter, r *http.Request) {
		req := s.capture(r)
		if r.Header.Get("Authorization") != "Bearer "+s.PublicKey {
			writeError(w, http.StatusUnauthorized, "PCC-1002", "invalid API key")
			return
		}
		agent, ok := s.agent(r.PathValue("agent"))
		if !ok {
			writeError(w, http.StatusNotFound, "404", "service not found")
			return
		}
		if agent.StartStatus != 0 {
			writeError(w, agent.StartStatus, "PCC-1001", "agent at capacity")
			return
		}
		var body StartBody
		if err := json.Unmarshal(req.Body, &body); err != nil {
			writeError(w, http.StatusBadRequest, "400", err.Error())
			return
		}
		if agent.Response != "" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, agent.Response)
			return
		}
		if body.CreateDailyRoom {
			writeJSON(w, map[string]string{"dailyRoom": agent.Room, "dailyToken": agent.Token})
			return
		}
		writeJSON(w, map[string]string{"status": "started"})
	})
}

func (s *Server) capture(r *http.Request) Request {
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	req := Request{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return req
}

func (s *Server) agent(name string) (Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[name]
	return a, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "error": msg})
}
