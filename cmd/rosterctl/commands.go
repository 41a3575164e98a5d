// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/roster"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/transfer"
)

// =============================================================================
// Roster loading
// =============================================================================

// session bundles what every subcommand needs.
type session struct {
	cfg    *config.Config
	store  *roster.Store
	closer io.Closer
}

func (s *session) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// openSession resolves the roster location and opens a store on it.
//
// Config errors are not fatal: a bad or missing config file still leaves
// the defaults and $AGENT_ROSTER_PATH usable.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if configPath != "" {
			return nil, err
		}
		cfg = config.Default()
	}
	if rosterPath != "" {
		cfg.Roster.Path = rosterPath
	}
	if cfg.Roster.Path == "" {
		return nil, fmt.Errorf("no roster location: pass --roster or set AGENT_ROSTER_PATH")
	}

	src, err := roster.OpenSource(ctx, cfg.Roster.Path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", cfg.Roster.Path, err)
	}
	s := &session{cfg: cfg, store: roster.NewStore(src, quietLogger())}
	if c, ok := src.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// quietLogger discards store logging so it does not interleave with
// command output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withSession(fn func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, cmd, s, args)
	}
}

// =============================================================================
// Commands
// =============================================================================

func newListCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transferable agents and staff",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			out := cmd.OutOrStdout()
			doc := s.store.Load(ctx)
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Roster: %s", s.cfg.Roster.Path)))
			if doc.Company.Name != "" {
				fmt.Fprintf(out, "%s  office %s\n", doc.Company.Name, orDash(doc.Company.MainOfficePhone))
			}
			people := s.store.Transferable(ctx)
			if all {
				people = append(append([]roster.Agent{}, doc.Agents...), doc.Staff...)
			}
			fmt.Fprint(out, renderAgents(people))
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d %s", len(people), pluralize(len(people), "entry", "entries"))))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include entries without a dialable phone")
	return cmd
}

func newFindCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find <name>",
		Short: "Find an agent by name the way the voice agent does",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			query := strings.Join(args, " ")
			m := s.store.MatchName(ctx, query)
			out := cmd.OutOrStdout()
			if m.Pass == roster.PassNone {
				fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("No roster agent matches %q", query)))
				return nil
			}
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("Matched %s (%s pass, score %.2f)", m.Agent.Name, m.Pass, m.Score)))
			fmt.Fprint(out, renderAgents([]roster.Agent{m.Agent}))
			return nil
		}),
	}
}

func newPhoneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "phone <number>",
		Short: "Find the agent who owns a phone number",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			out := cmd.OutOrStdout()
			a, ok := s.store.FindByPhone(ctx, args[0])
			if !ok {
				fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("No roster agent has %s", args[0])))
				return nil
			}
			fmt.Fprint(out, renderAgents([]roster.Agent{a}))
			return nil
		}),
	}
}

func newOfficeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "office",
		Short: "Show the main office line used as the last-resort destination",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			out := cmd.OutOrStdout()
			number, ok := s.store.MainOfficePhone(ctx)
			if !ok {
				fmt.Fprintln(out, errStyle.Render("No main office phone configured"))
				return nil
			}
			e164, _ := phone.ToE164(number)
			fmt.Fprintf(out, "%s %s\n", number, dimStyle.Render("("+e164+")"))
			return nil
		}),
	}
}

func newResolveCommand() *cobra.Command {
	var name, number string
	var testMode bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Preview where a transfer request would be sent",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			tm := s.cfg.TestMode
			if !cmd.Flags().Changed("test-mode") {
				testMode = tm.Enabled
			}
			tm.Enabled = testMode

			resolver := transfer.NewResolver(s.store, tm, nil, quietLogger())
			res, err := resolver.Resolve(ctx, "rosterctl", name, number)
			out := cmd.OutOrStdout()
			if err != nil {
				fmt.Fprintln(out, errStyle.Render("No destination: the roster has no agents and no office line"))
				return nil
			}
			fmt.Fprint(out, renderResolution(res))
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "Requested agent name")
	cmd.Flags().StringVar(&number, "phone", "", "Requested agent phone")
	cmd.Flags().BoolVar(&testMode, "test-mode", false, "Apply the test-mode destination override (default from config)")
	return cmd
}

func newGateCommand() *cobra.Command {
	var leadID, callerName, callerPhone string
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Check whether a transfer request would pass the lead gate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			g := transfer.CheckGate(leadID, callerName, callerPhone)
			if g.Allowed {
				fmt.Fprintln(out, okStyle.Render("ALLOWED"))
				return nil
			}
			fmt.Fprintln(out, errStyle.Render("BLOCKED")+" missing: "+strings.Join(g.Missing, ", "))
			fmt.Fprintln(out, dimStyle.Render("Assistant says: "+g.Message))
			return nil
		},
	}
	cmd.Flags().StringVar(&leadID, "lead", "", "CRM lead ID")
	cmd.Flags().StringVar(&callerName, "caller-name", "", "Caller name")
	cmd.Flags().StringVar(&callerPhone, "caller-phone", "", "Caller callback number")
	return cmd
}

// =============================================================================
// Rendering
// =============================================================================

func renderAgents(agents []roster.Agent) string {
	nameW, phoneW := len("NAME"), len("PHONE")
	for _, a := range agents {
		nameW = max(nameW, len(a.Name))
		phoneW = max(phoneW, len(a.ContactPhone()))
	}
	var b strings.Builder
	row := func(name, ph, email, title string) string {
		return fmt.Sprintf("%-*s  %-*s  %s  %s", nameW, name, phoneW, ph, email, title)
	}
	b.WriteString(headerStyle.Render(row("NAME", "PHONE", "EMAIL", "TITLE")))
	b.WriteByte('\n')
	for _, a := range agents {
		line := row(a.Name, orDash(a.ContactPhone()), orDash(a.Email), a.Title)
		if !a.Transferable() {
			line = dimStyle.Render(line)
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderResolution(res transfer.Resolution) string {
	var b strings.Builder
	verdict := okStyle.Render("verified")
	if !res.Verified {
		verdict = warnStyle.Render("substituted")
	}
	fmt.Fprintf(&b, "%s %s %s\n", headerStyle.Render("Destination:"), res.AgentName, res.AgentPhone)
	fmt.Fprintf(&b, "Source:      %s (%s)\n", res.Source, verdict)
	if res.RequestedName != "" || res.RequestedPhone != "" {
		fmt.Fprintf(&b, "Requested:   %s %s\n", orDash(res.RequestedName), res.RequestedPhone)
	}
	if res.TestOverride {
		fmt.Fprintln(&b, warnStyle.Render(fmt.Sprintf("TEST MODE: would have dialed %s %s", res.OriginalName, res.OriginalPhone)))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
