// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for aegis.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdStatus
	CmdConfig
	CmdAudit
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	Demo      bool   // Force the built-in demo backend
	ServerURL string // Override the configured server URL
	Quiet     bool

	// Command-specific
	Subcommand string
	Lines      int

	Raw []string
}

// Parse reads os.Args and returns the command plus its arguments.
func Parse() (Command, *Args) {
	args := &Args{Lines: 20, Raw: os.Args[1:]}

	rest := os.Args[1:]
	cmd := CmdTUI
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		switch rest[0] {
		case "status":
			cmd = CmdStatus
		case "config":
			cmd = CmdConfig
		case "audit":
			cmd = CmdAudit
		case "version":
			cmd = CmdVersion
		case "help":
			cmd = CmdHelp
		default:
			fmt.Fprintf(os.Stderr, "aegis: unknown command %q\n\n", rest[0])
			cmd = CmdHelp
		}
		rest = rest[1:]
	}

	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--demo":
			args.Demo = true
		case arg == "--quiet" || arg == "-q":
			args.Quiet = true
		case arg == "--server" && i+1 < len(rest):
			args.ServerURL = rest[i+1]
			i++
		case strings.HasPrefix(arg, "--server="):
			args.ServerURL = strings.TrimPrefix(arg, "--server=")
		case arg == "--lines" && i+1 < len(rest):
			fmt.Sscanf(rest[i+1], "%d", &args.Lines)
			i++
		case strings.HasPrefix(arg, "--lines="):
			fmt.Sscanf(strings.TrimPrefix(arg, "--lines="), "%d", &args.Lines)
		case arg == "-h" || arg == "--help":
			return CmdHelp, args
		case !strings.HasPrefix(arg, "-") && args.Subcommand == "":
			args.Subcommand = arg
		}
	}
	return cmd, args
}

// HandleHelp prints usage.
func HandleHelp(*Args) {
	fmt.Print(`aegis - terminal client for the medical records portal

Usage:
  aegis [flags]            Start the interactive TUI
  aegis status             Check server reachability
  aegis config [show|path] Inspect the effective configuration
  aegis audit [--lines N]  Show recent local audit events
  aegis version            Print version information
  aegis help               Show this help

Flags:
  --demo            Use the built-in demo backend (no server needed)
  --server URL      Override the configured server URL
  -q, --quiet       Suppress informational output
`)
}

// HandleVersion prints build information.
func HandleVersion(*Args) {
	fmt.Printf("aegis %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
