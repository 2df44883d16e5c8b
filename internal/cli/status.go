// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/muesli/termenv"

	"github.com/morganforge/aegis-tui/internal/api"
	"github.com/morganforge/aegis-tui/internal/audit"
	"github.com/morganforge/aegis-tui/internal/config"
)

// statusTimeout bounds the reachability probe.
const statusTimeout = 5 * time.Second

// HandleStatus probes the configured server and reports reachability.
func HandleStatus(args *Args) {
	cfg := loadConfig(args)
	out := termenv.NewOutput(os.Stdout)

	if cfg.Server.DemoMode {
		fmt.Println(out.String("demo mode").Foreground(out.Color("3")))
		fmt.Println("Using the built-in demo backend; no server required.")
		return
	}

	client, err := api.NewClient(cfg.Server.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aegis: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	fmt.Printf("Server:  %s\n", cfg.Server.URL)
	if err := client.Ping(ctx); err != nil {
		fmt.Println(out.String("unreachable").Foreground(out.Color("1")))
		if !args.Quiet {
			fmt.Fprintf(os.Stderr, "  %v\n", err)
		}
		os.Exit(1)
	}
	fmt.Println(out.String("reachable").Foreground(out.Color("2")))

	// Presence only; the token is opaque and the server decides validity.
	if _, err := os.Stat(cfg.TokenPath()); err == nil {
		fmt.Println("Session: token present")
	} else {
		fmt.Println("Session: none")
	}
}

// HandleConfig inspects the effective configuration.
func HandleConfig(args *Args) {
	switch args.Subcommand {
	case "path":
		fmt.Println(config.ConfigPath())
	case "", "show":
		cfg := loadConfig(args)
		fmt.Printf("server.url        = %s\n", cfg.Server.URL)
		fmt.Printf("server.demo_mode  = %v\n", cfg.Server.DemoMode)
		fmt.Printf("session.otp_ttl   = %ds\n", cfg.Session.OTPTTLSecs)
		fmt.Printf("session.token     = %s\n", cfg.TokenPath())
		fmt.Printf("audit.enabled     = %v\n", cfg.Audit.Enabled)
		fmt.Printf("audit.database    = %s\n", cfg.AuditDatabasePath())
	default:
		fmt.Fprintf(os.Stderr, "aegis: unknown config subcommand %q\n", args.Subcommand)
		os.Exit(2)
	}
}

// HandleAudit prints recent entries from the local audit trail.
func HandleAudit(args *Args) {
	cfg := loadConfig(args)
	trail, err := audit.Open(cfg.AuditDatabasePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "aegis: %v\n", err)
		os.Exit(1)
	}
	defer trail.Close()

	entries, err := trail.Recent(args.Lines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aegis: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No audit events recorded.")
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-22s", e.Timestamp.Format(time.RFC3339), e.Event)
		if e.Actor != "" {
			line += "  actor=" + e.Actor
		}
		if e.Subject != "" {
			line += "  subject=" + e.Subject
		}
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Println(line)
	}
}

// loadConfig loads the config file and applies CLI overrides.
func loadConfig(args *Args) *config.Config {
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
	return cfg
}
