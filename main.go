// aegis - terminal client for a role-gated medical records portal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/audit"
	"github.com/morganforge/aegis-tui/internal/cli"
	"github.com/morganforge/aegis-tui/internal/config"
	"github.com/morganforge/aegis-tui/internal/session"
	"github.com/morganforge/aegis-tui/internal/ui/app"
	"github.com/morganforge/aegis-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdAudit:
		cli.HandleAudit(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp(args)
	}
}

func runTUI(args *cli.Args) {
	cli.RequireInteractive()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "aegis: %v\n", err)
		os.Exit(1)
	}
	if args.Demo {
		cfg.Server.DemoMode = true
	}
	if args.ServerURL != "" {
		cfg.Server.URL = args.ServerURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "aegis: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	backend, tokens, err := buildBackend(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aegis: %v\n", err)
		os.Exit(1)
	}
	store := session.NewStore(backend, tokens)

	var trail *audit.Trail
	if cfg.Audit.Enabled {
		trail, err = audit.Open(cfg.AuditDatabasePath())
		if err != nil {
			// The client works without a trail; say so and continue.
			fmt.Fprintf(os.Stderr, "aegis: audit trail unavailable: %v\n", err)
		} else {
			defer trail.Close()
		}
	}

	model := app.New(cfg, store, trail, styles.NewTheme())
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "aegis: %v\n", err)
		os.Exit(1)
	}
}

// buildBackend selects the demo backend or the HTTP client. The demo
// keeps its sessions in memory so a later real login cannot collide
// with a leftover demo token.
func buildBackend(cfg *config.Config) (api.Backend, session.TokenStore, error) {
	if cfg.Server.DemoMode {
		demo := api.NewDemo()
		demo.OTPSink = os.Stderr
		return demo, &session.MemoryTokenStore{}, nil
	}
	client, err := api.NewClient(cfg.Server.URL)
	if err != nil {
		return nil, nil, err
	}
	client.SetTimeout(time.Duration(cfg.Server.TimeoutSecs) * time.Second)
	return client, session.NewFileTokenStore(cfg.TokenPath()), nil
}
