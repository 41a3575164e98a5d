// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package roster

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ClearsCacheOnWrite(t *testing.T) {
	ctx := context.Background()
	path := writeRoster(t, sampleRoster())
	s := NewFileStore(path, nil)
	require.Len(t, s.Load(ctx).Agents, 3)

	w, err := Watch(s, path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	updated := sampleRoster()
	updated.Agents = append(updated.Agents, Agent{Name: "New Hire", CellPhone: "352-555-0110"})
	raw, err := json.Marshal(updated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	assert.Eventually(t, func() bool {
		_, ok := s.FindByName(ctx, "New Hire")
		return ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	ctx := context.Background()
	path := writeRoster(t, sampleRoster())
	s := NewFileStore(path, nil)
	first := s.Load(ctx)

	w, err := Watch(s, path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Same(t, first, s.Load(ctx))
}

func TestWatch_MissingDirectory(t *testing.T) {
	s := NewFileStore("/definitely/not/here/roster.json", nil)
	_, err := Watch(s, "/definitely/not/here/roster.json", nil)
	assert.Error(t, err)
}

func TestSplitGCSURI(t *testing.T) {
	b, o, err := splitGCSURI("gs://sally-love-config/roster/agent_roster.json")
	require.NoError(t, err)
	assert.Equal(t, "sally-love-config", b)
	assert.Equal(t, "roster/agent_roster.json", o)

	_, _, err = splitGCSURI("gs://bucket-only")
	assert.Error(t, err)
}

func TestOpenSource_File(t *testing.T) {
	src, err := OpenSource(context.Background(), "data/agent_roster.json")
	require.NoError(t, err)
	assert.Equal(t, FileSource{Path: "data/agent_roster.json"}, src)
}
