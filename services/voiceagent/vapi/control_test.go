// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlClient_Transfer(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewControlClient(time.Second, nil)
	err := c.Transfer(context.Background(), srv.URL+"/abc/", "+13526267671", "Please hold")
	require.NoError(t, err)

	assert.Equal(t, "/abc/control", gotPath)
	assert.Equal(t, "transfer", gotBody["type"])
	assert.Equal(t, "Please hold", gotBody["content"])
	dest, ok := gotBody["destination"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "number", dest["type"])
	assert.Equal(t, "+13526267671", dest["number"])
}

func TestControlClient_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	err := NewControlClient(time.Second, nil).Transfer(context.Background(), srv.URL, "+13526267671", "")
	var ce *ControlError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, CodeHTTPStatus, ce.Code)
	assert.Equal(t, http.StatusInternalServerError, ce.StatusCode)
	assert.Contains(t, ce.Body, "boom")
}

func TestControlClient_BadURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "ftp://host/x", "/relative"} {
		err := NewControlClient(time.Second, nil).Transfer(context.Background(), u, "+13526267671", "")
		var ce *ControlError
		require.True(t, errors.As(err, &ce), u)
		assert.Equal(t, CodeBadURL, ce.Code, u)
	}
}

func TestControlClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := NewControlClient(50*time.Millisecond, nil).Transfer(context.Background(), srv.URL, "+13526267671", "")
	var ce *ControlError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, CodeTimeout, ce.Code)
}

func TestControlClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewControlClient(time.Second, nil).Transfer(context.Background(), url, "+13526267671", "")
	var ce *ControlError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, CodeNetwork, ce.Code)
}
