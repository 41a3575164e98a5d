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

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/secrets"
)

func newTestClient(url string, sec secrets.Provider) *Client {
	return NewClient(config.VapiConfig{
		APIURL:         url,
		AssistantID:    "asst-1",
		PhoneNumberID:  "pn-1",
		RequestTimeout: time.Second,
	}, sec, nil)
}

func TestClient_CreatePhoneCall(t *testing.T) {
	var got createCallBody
	var auth, method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, method, path = r.Header.Get("Authorization"), r.Method, r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"call-99","status":"queued"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL+"/", secrets.Static{secrets.VapiAPIKey: "k-123"})
	require.True(t, c.Configured())

	call, err := c.CreatePhoneCall(context.Background(), OutboundCall{
		Customer: Customer{Number: "352-555-0100", Name: "Pat Doe"},
		Metadata: map[string]string{"ghl_contact_id": "g1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "call-99", call.ID)
	assert.Equal(t, "queued", call.Status)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/call/phone", path)
	assert.Equal(t, "Bearer k-123", auth)
	assert.Equal(t, "asst-1", got.AssistantID)
	assert.Equal(t, "pn-1", got.PhoneNumberID)
	assert.Equal(t, "+13525550100", got.Customer.Number)
	assert.Equal(t, "g1", got.Metadata["ghl_contact_id"])
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad number"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, secrets.Static{secrets.VapiAPIKey: "k"})
	_, err := c.CreatePhoneCall(context.Background(), OutboundCall{Customer: Customer{Number: "3525550100"}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "create_phone_call", apiErr.Operation)
	assert.Contains(t, apiErr.Body, "bad number")
}

func TestClient_NotConfigured(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", secrets.Static{})
	assert.False(t, c.Configured())

	_, err := c.CreatePhoneCall(context.Background(), OutboundCall{Customer: Customer{Number: "3525550100"}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.GetCall(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_GetCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/call/call-5", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"call-5","status":"ended","endedReason":"voicemail"}`))
	}))
	defer srv.Close()

	call, err := newTestClient(srv.URL, secrets.Static{secrets.VapiAPIKey: "k"}).GetCall(context.Background(), "call-5")
	require.NoError(t, err)
	assert.Equal(t, "voicemail", call.EndedReason)
}
