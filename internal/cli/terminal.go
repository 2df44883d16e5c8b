// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// RequireInteractive exits when stdout is not a terminal. The TUI
// renders escape sequences that are useless in a pipe; the
// subcommands remain available for scripting.
func RequireInteractive() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "aegis: stdout is not a terminal (use 'aegis status' or 'aegis audit' for scripting)")
		os.Exit(1)
	}
}
