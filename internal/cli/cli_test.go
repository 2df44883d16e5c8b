// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"testing"
)

func parseArgs(t *testing.T, argv ...string) (Command, *Args) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"aegis"}, argv...)
	t.Cleanup(func() { os.Args = old })
	return Parse()
}

func TestParse_DefaultIsTUI(t *testing.T) {
	cmd, args := parseArgs(t)
	if cmd != CmdTUI {
		t.Errorf("cmd = %v, want TUI", cmd)
	}
	if args.Demo {
		t.Error("demo defaulted on")
	}
}

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{[]string{"status"}, CmdStatus},
		{[]string{"config", "show"}, CmdConfig},
		{[]string{"audit"}, CmdAudit},
		{[]string{"version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"bogus"}, CmdHelp},
	}
	for _, tc := range tests {
		cmd, _ := parseArgs(t, tc.argv...)
		if cmd != tc.want {
			t.Errorf("Parse(%v) = %v, want %v", tc.argv, cmd, tc.want)
		}
	}
}

func TestParse_Flags(t *testing.T) {
	cmd, args := parseArgs(t, "--demo", "--server", "https://portal.example.com")
	if cmd != CmdTUI {
		t.Fatalf("cmd = %v", cmd)
	}
	if !args.Demo {
		t.Error("--demo not parsed")
	}
	if args.ServerURL != "https://portal.example.com" {
		t.Errorf("ServerURL = %q", args.ServerURL)
	}

	_, args = parseArgs(t, "audit", "--lines=5")
	if args.Lines != 5 {
		t.Errorf("Lines = %d, want 5", args.Lines)
	}

	_, args = parseArgs(t, "config", "path")
	if args.Subcommand != "path" {
		t.Errorf("Subcommand = %q", args.Subcommand)
	}
}
