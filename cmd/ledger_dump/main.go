// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// ledger_dump inspects the transfer ledger kept in BadgerDB.
//
// The voice agent records the latest transfer attempt of every call so a
// later no-answer report can name the caller and the agent who was dialed.
// This tool opens the ledger read-only and prints each attempt: call ID,
// caller, destination, outcome and the TTL remaining.
//
// Usage:
//
//	ledger_dump [--path data/ledger] [--call CALL_ID]
//
// If --path is not given, reads LEDGER_PATH from the environment, falling
// back to data/ledger.
//
// Exit codes:
//
//	0 - success (an empty or missing ledger prints a message and exits 0)
//	1 - error opening or reading the database
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/ledger"
)

func main() {
	pathFlag := flag.String("path", "", "Path to the ledger BadgerDB directory (overrides LEDGER_PATH)")
	callFlag := flag.String("call", "", "Only print the attempt for this call ID")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = os.Getenv("LEDGER_PATH")
	}
	if dbPath == "" {
		dbPath = "data/ledger"
	}

	fmt.Printf("Transfer ledger path: %s\n", dbPath)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("Ledger directory does not exist. No transfer has been recorded with the badger backend yet.")
		os.Exit(0)
	}

	opts := dgbadger.DefaultOptions(dbPath).
		WithLogger(nil).
		WithReadOnly(true)

	db, err := dgbadger.Open(opts)
	if err != nil {
		fatalf("open BadgerDB at %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	type entry struct {
		key       string
		attempt   ledger.Attempt
		expiresAt time.Time
		hasExpiry bool
		rawSize   int
		decodeErr error
	}

	var entries []entry
	prefix := []byte(ledger.BadgerKeyPrefix)
	if *callFlag != "" {
		prefix = ledger.BadgerKey(*callFlag)
	}

	err = db.View(func(txn *dgbadger.Txn) error {
		iopts := dgbadger.DefaultIteratorOptions
		iopts.PrefetchValues = true
		it := txn.NewIterator(iopts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			e := entry{key: string(item.Key())}
			if *callFlag != "" && e.key != string(prefix) {
				continue
			}

			// ExpiresAt is Unix seconds, 0 means no expiry.
			if expiresAt := item.ExpiresAt(); expiresAt > 0 {
				e.hasExpiry = true
				e.expiresAt = time.Unix(int64(expiresAt), 0)
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				e.decodeErr = fmt.Errorf("copy value: %w", err)
				entries = append(entries, e)
				continue
			}
			e.rawSize = len(raw)
			if err := json.Unmarshal(raw, &e.attempt); err != nil {
				e.decodeErr = fmt.Errorf("json decode: %w", err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		fatalf("read BadgerDB: %v", err)
	}

	if len(entries) == 0 {
		if *callFlag != "" {
			fmt.Printf("\nNo attempt recorded for call %s (never transferred, or expired).\n", *callFlag)
		} else {
			fmt.Println("\nNo transfer attempts recorded.")
		}
		os.Exit(0)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].attempt.RecordedAt.After(entries[j].attempt.RecordedAt)
	})

	fmt.Printf("\nFound %d transfer attempt%s:\n", len(entries), plural(len(entries)))
	fmt.Println(strings.Repeat("─", 80))

	for i, e := range entries {
		fmt.Printf("\n[%d] Key:         %s\n", i+1, e.key)
		if e.hasExpiry {
			remaining := time.Until(e.expiresAt)
			if remaining < 0 {
				fmt.Printf("    TTL:         EXPIRED (%s ago)\n", (-remaining).Round(time.Second))
			} else {
				fmt.Printf("    TTL:         %s remaining (expires %s)\n",
					remaining.Round(time.Second),
					e.expiresAt.Format("2006-01-02 15:04:05 MST"))
			}
		} else {
			fmt.Printf("    TTL:         no expiry set\n")
		}
		fmt.Printf("    Raw size:    %s\n", humanize.Bytes(uint64(e.rawSize)))

		if e.decodeErr != nil {
			fmt.Printf("    DECODE ERROR: %v\n", e.decodeErr)
			continue
		}

		a := e.attempt
		fmt.Printf("    Recorded:    %s (%s)\n", a.RecordedAt.Format(time.RFC3339), humanize.Time(a.RecordedAt))
		fmt.Printf("    Lead:        %s\n", orDash(a.LeadID))
		fmt.Printf("    Caller:      %s %s\n", orDash(a.CallerName), a.CallerPhone)
		if a.RequestedName != "" || a.RequestedPhone != "" {
			fmt.Printf("    Requested:   %s %s\n", orDash(a.RequestedName), a.RequestedPhone)
		}
		fmt.Printf("    Destination: %s %s\n", orDash(a.AgentName), a.AgentPhone)
		outcome := a.State
		if a.Reason != "" {
			outcome += " (" + a.Reason + ")"
		}
		fmt.Printf("    Outcome:     %s\n", outcome)
		fmt.Printf("    Flags:       verified=%t executed=%t fallback=%t test_mode=%t\n",
			a.Verified, a.Executed, a.FallbackUsed, a.TestOverride)
	}

	fmt.Printf("\n%s\n", strings.Repeat("─", 80))
	fmt.Printf("Summary: %d attempt%s, ledger path: %s\n", len(entries), plural(len(entries)), dbPath)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// fatalf prints to stderr and exits 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ledger_dump: "+format+"\n", args...)
	os.Exit(1)
}
