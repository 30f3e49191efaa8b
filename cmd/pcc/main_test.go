package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pipecat-cloud/pcc/internal/cloud/cloudtest"
	core "github.com/pipecat-cloud/pcc/internal/core"
	"github.com/pipecat-cloud/pcc/pkg/pcc"
)

type testEnv struct {
	srv     *cloudtest.Server
	dir     string
	cfgPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, k := range []string{"PIPECAT_ORG", "PIPECAT_API_HOST", "PIPECAT_PUBLIC_KEY", "PCC_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("PIPECAT_TOKEN", "tok")
	srv := cloudtest.NewServer("tok", "acme", "pk_test",
		cloudtest.Agent{Name: "bot", Ready: true, Room: "https://x.example/room", Token: "abc"},
		cloudtest.Agent{Name: "sleepy", Ready: false},
	)
	t.Cleanup(srv.Close)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "api_host: " + srv.URL + "\norg: acme\npublic_key: pk_test\nhistory_db: " + filepath.Join(dir, "history.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return &testEnv{srv: srv, dir: dir, cfgPath: cfgPath}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append(args, "--config", e.cfgPath))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "pcc ") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAgentStartPrintsLinkAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "agent", "start", "bot", "--use-daily")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if strings.TrimSpace(out) != "https://x.example/room?t=abc" {
		t.Fatalf("unexpected output %q", out)
	}
	reqs := env.srv.Requests()
	if len(reqs) != 2 || reqs[0].Method != "GET" || reqs[1].Method != "POST" {
		t.Fatalf("expected health check then start, got %+v", reqs)
	}

	out, err = env.run(t, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out, "bot") || !strings.Contains(out, "https://x.example/room?t=abc") || !strings.Contains(out, core.SessionStarted) {
		t.Fatalf("unexpected sessions output %q", out)
	}
}

func TestAgentStartWithoutDailyReportsNoData(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "agent", "start", "bot")
	if !errors.Is(err, pcc.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	out, err := env.run(t, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out, core.SessionFailed) || !strings.Contains(out, pcc.ErrNoData.Error()) {
		t.Fatalf("unexpected sessions output %q", out)
	}
}

func TestAgentStartNotReady(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "agent", "start", "sleepy", "--use-daily", "--no-history")
	if !errors.Is(err, pcc.ErrAgentNotHealthy) {
		t.Fatalf("expected ErrAgentNotHealthy, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(env.dir, "history.db")); statErr == nil {
		t.Fatalf("history should not be written with --no-history")
	}
}

func TestAgentStartDataFile(t *testing.T) {
	env := newTestEnv(t)
	file := filepath.Join(env.dir, "payload.jsonc")
	payload := "{\n  // who is calling\n  \"user\": \"ada\",\n}\n"
	if err := os.WriteFile(file, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "agent", "start", "bot", "--use-daily", "--data-file", file); err != nil {
		t.Fatalf("start: %v", err)
	}
	reqs := env.srv.Requests()
	var body cloudtest.StartBody
	if err := json.Unmarshal(reqs[len(reqs)-1].Body, &body); err != nil {
		t.Fatalf("decode start body: %v", err)
	}
	if string(body.Body) != `{"user":"ada"}` {
		t.Fatalf("unexpected payload %s", body.Body)
	}
}

func TestAgentStartRejectsConflictingInputs(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "agent", "start", "bot", "--data", "{}", "--data-file", "x.json")
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected mutually exclusive error, got %v", err)
	}
	_, err = env.run(t, "agent", "start", "bot", "--daily-properties", "{broken")
	if !errors.Is(err, pcc.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if n := len(env.srv.Requests()); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestAgentStatus(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "agent", "status", "bot")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "ready") {
		t.Fatalf("unexpected output %q", out)
	}
	out, err = env.run(t, "agent", "status", "sleepy")
	if err == nil || !strings.Contains(out, "not ready") {
		t.Fatalf("expected not ready, out=%q err=%v", out, err)
	}
	if _, err := env.run(t, "agent", "status", "ghost"); err == nil {
		t.Fatalf("expected error for missing agent")
	}
	if _, err := env.run(t, "agent", "status", "bot", "--org", "other"); err == nil {
		t.Fatalf("expected error for foreign org")
	}
}

func TestInitWritesConfigAndSecrets(t *testing.T) {
	t.Setenv("PIPECAT_TOKEN", "")
	t.Setenv("PIPECAT_ORG", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pcc", "config.yaml")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader("acme\nsk_live_123\n"))
	root.SetArgs([]string{"init", "--config", cfgPath})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg, err := core.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Org != "acme" || cfg.Token != "sk_live_123" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	raw, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "sk_live_123") {
		t.Fatalf("token leaked into config.yaml")
	}
}
