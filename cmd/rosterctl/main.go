// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// rosterctl answers roster and transfer-routing questions from the shell.
//
// It loads the same roster document the voice agent serves from and runs
// the same lookups, so staff can check where a call for a given agent
// would land before a caller ever asks.
//
// Usage:
//
//	rosterctl list
//	rosterctl find "kim coffer"
//	rosterctl phone 352-626-7671
//	rosterctl office
//	rosterctl resolve --name "Kim Coffer" --phone 3526267671
//	rosterctl gate --lead L-1 --caller-name "Pat Buyer" --caller-phone 3525550199
//
// The roster location comes from --roster, then the voice agent config
// (--config or $VOICE_AGENT_CONFIG), then $AGENT_ROSTER_PATH.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	configPath string
	rosterPath string
	noColor    bool
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Inspect the agent roster and preview transfer routing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if noColor {
				disableColor()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Voice agent YAML config (default $VOICE_AGENT_CONFIG)")
	root.PersistentFlags().StringVar(&rosterPath, "roster", "", "Roster file or gs://bucket/object (overrides config)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable styled output")

	root.AddCommand(
		newListCommand(),
		newFindCommand(),
		newPhoneCommand(),
		newOfficeCommand(),
		newResolveCommand(),
		newGateCommand(),
	)
	return root
}

func disableColor() {
	plain := lipgloss.NewStyle()
	headerStyle, okStyle, warnStyle, errStyle, dimStyle = plain, plain, plain, plain, plain
}
