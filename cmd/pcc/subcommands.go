package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pipecat-cloud/pcc/internal/cloud"
	core "github.com/pipecat-cloud/pcc/internal/core"
	"github.com/pipecat-cloud/pcc/pkg/pcc"
)

var (
	readyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	notReadyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Resolve config and an API client for the current invocation
func resolveClient(cmd *cobra.Command) (core.Config, *cloud.Client, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := core.LoadConfig(cfgPath)
	if err != nil {
		return cfg, nil, err
	}
	if org, _ := cmd.Flags().GetString("org"); org != "" {
		cfg.Org = org
	}
	tlsConfig, err := cloud.TLSConfig(cfg.CACert)
	if err != nil {
		return cfg, nil, err
	}
	logger := log.Logger
	client := cloud.New(cloud.Options{
		BaseURL:    cfg.APIHost,
		AgentPath:  cfg.Paths.Agent,
		StartPath:  cfg.Paths.Start,
		Token:      cfg.Token,
		HTTPClient: cloud.NewHTTPClient(cfg.Timeout(), tlsConfig),
		Logger:     &logger,
	})
	return cfg, client, nil
}

func requireOrg(cfg core.Config) error {
	if cfg.Org == "" {
		return errors.New("organization not set; run `pcc init` or pass --org")
	}
	return nil
}

func logStats(c *cloud.Client) {
	requests, errs, total := c.Stats().Get()
	log.Debug().Int64("requests", requests).Int64("errors", errs).Dur("total", total).Msg("api stats")
}

// Agent command group
func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect and start deployed agents",
	}
	cmd.AddCommand(newAgentStatusCmd())
	cmd.AddCommand(newAgentStartCmd())
	return cmd
}

// Report whether an agent is ready to accept starts
func newAgentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <agent>",
		Short: "Show whether an agent is deployed and healthy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			defer logStats(client)
			if err := requireOrg(cfg); err != nil {
				return err
			}
			name := args[0]
			agent, err := client.Agent(cmd.Context(), name, cfg.Org)
			if err != nil {
				return fmt.Errorf("check agent health: %w", err)
			}
			out := cmd.OutOrStdout()
			if agent == nil {
				fmt.Fprintf(out, "%s\t%s\n", name, notReadyStyle.Render("not found"))
				return fmt.Errorf("agent %s does not exist in %s", name, cfg.Org)
			}
			if !agent.Ready {
				fmt.Fprintf(out, "%s\t%s\n", name, notReadyStyle.Render("not ready"))
				return fmt.Errorf("agent %s is not ready", name)
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", name, readyStyle.Render("ready"), agent.Region)
			return nil
		},
	}
}

// Start an agent session
func newAgentStartCmd() *cobra.Command {
	var flags startFlags
	cmd := &cobra.Command{
		Use:   "start <agent>",
		Short: "Start an agent and print the session link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := resolveClient(cmd)
			if err != nil {
				return err
			}
			defer logStats(client)
			req, err := flags.request(args[0], cfg.PublicKey)
			if err != nil {
				return err
			}
			helper, err := pcc.New(cfg.Token, cfg.Org, pcc.WithService(pcc.NewCloudService(client)))
			if err != nil {
				return err
			}
			log.Debug().Str("agent", req.AgentName).Bool("daily", req.UseDaily).Msg("starting agent")
			link, startErr := helper.StartAgent(cmd.Context(), req)
			if !flags.noHistory {
				recordSession(cmd, cfg, req.AgentName, link, startErr)
			}
			if startErr != nil {
				return startErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	flags.bind(cmd.Flags())
	return cmd
}

// recordSession stores the attempt; history problems never fail a start.
func recordSession(cmd *cobra.Command, cfg core.Config, agent, link string, startErr error) {
	store, err := core.NewStore(cfg.HistoryDB)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.HistoryDB).Msg("open history")
		return
	}
	defer store.Close()
	sess := core.Session{Agent: agent, Org: cfg.Org, URL: link, Status: core.SessionStarted}
	if startErr != nil {
		sess.Status = core.SessionFailed
		sess.Error = startErr.Error()
	}
	if _, err := store.Record(cmd.Context(), sess); err != nil {
		log.Warn().Err(err).Msg("record history")
	}
}

// List recent start attempts
func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent agent starts",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := core.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			store, err := core.NewStore(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()
			sessions, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range sessions {
				detail := s.URL
				if s.Status == core.SessionFailed {
					detail = s.Error
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", humanize.Time(s.CreatedAt), s.Agent, s.Org, s.Status, detail)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "number of sessions to show")
	return cmd
}

// Initialize configuration and credentials
func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "pcc initialization command. Run this the first time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				cfgPath = core.DefaultConfigPath()
			}
			org, _ := cmd.Flags().GetString("org")
			host, _ := cmd.Flags().GetString("api-host")
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.ErrOrStderr()

			if org == "" {
				fmt.Fprint(out, "Organization: ")
				line, err := in.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read organization: %w", err)
				}
				org = strings.TrimSpace(line)
			}
			if org == "" {
				return errors.New("organization is required")
			}
			fmt.Fprint(out, "API token: ")
			token, err := readToken(cmd.InOrStdin(), in)
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			if token == "" {
				return errors.New("API token is required")
			}

			cfg := core.Config{Org: org, APIHost: host}
			if err := core.SaveConfig(cfgPath, cfg); err != nil {
				return err
			}
			secretsPath := filepath.Join(filepath.Dir(cfgPath), "secrets.env")
			if err := core.SaveSecretsEnv(secretsPath, map[string]string{"PIPECAT_TOKEN": token}); err != nil {
				return err
			}
			log.Info().Str("config", cfgPath).Str("secrets", secretsPath).Msg("configuration written")
			fmt.Fprintf(cmd.OutOrStdout(), "configured organization %s\n", org)
			return nil
		},
	}
	cmd.Flags().String("api-host", "", "API host (default "+cloud.DefaultBaseURL+")")
	return cmd
}

// readToken reads the token with echo disabled when stdin is a terminal,
// otherwise it takes the next input line.
func readToken(src io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := buffered.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
