// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package secrets holds integration credentials (voice platform, CRM, SMS,
// SMTP) sealed in encrypted memory and opens them only for the duration of
// an outbound request.
//
// Thread Safety:
//
//	All exported types are safe for concurrent use.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/awnumar/memguard"
)

// Well-known secret keys. Each is also the environment variable it is read from.
const (
	VapiAPIKey      = "VAPI_API_KEY"
	BoldTrailAPIKey = "BOLDTRAIL_API_KEY"
	TwilioAuthToken = "TWILIO_AUTH_TOKEN"
	SMTPPassword    = "SMTP_PASSWORD"
	GHLWebhookKey   = "GHL_WEBHOOK_SECRET"
)

// AllKeys lists every well-known key, for loading from the environment.
var AllKeys = []string{VapiAPIKey, BoldTrailAPIKey, TwilioAuthToken, SMTPPassword, GHLWebhookKey}

// ErrSecretNotFound is returned when a key has no value.
var ErrSecretNotFound = errors.New("secret not found")

// Provider retrieves secrets by key.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Provider interface {
	// Secret returns the value for key or an error wrapping ErrSecretNotFound.
	Secret(ctx context.Context, key string) (string, error)

	// Has reports whether key has a value, without opening it.
	Has(key string) bool
}

// Vault keeps each secret in its own memguard enclave.
//
// Description:
//
//	Plaintext exists only inside Secret() while it is copied out for a
//	request. Values read from the environment are sealed once at startup.
//
// Thread Safety: Safe for concurrent use via sync.RWMutex.
type Vault struct {
	mu       sync.RWMutex
	enclaves map[string]*memguard.Enclave
}

// NewVault creates an empty vault.
func NewVault() *Vault {
	return &Vault{enclaves: make(map[string]*memguard.Enclave)}
}

// FromEnv seals the named environment variables into a new vault. Unset or
// empty variables are skipped.
//
// Inputs:
//   - keys: Environment variable names. Defaults to the well-known keys.
func FromEnv(keys ...string) *Vault {
	if len(keys) == 0 {
		keys = AllKeys
	}
	v := NewVault()
	for _, k := range keys {
		v.Set(k, os.Getenv(k))
	}
	return v
}

// Set seals value under key. An empty value removes the key.
func (v *Vault) Set(key, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if value == "" {
		delete(v.enclaves, key)
		return
	}
	// NewEnclave wipes its input, so hand it a private copy.
	v.enclaves[key] = memguard.NewEnclave([]byte(value))
}

// Has implements Provider.
func (v *Vault) Has(key string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.enclaves[key] != nil
}

// Secret implements Provider.
func (v *Vault) Secret(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("secret %q: %w", key, err)
	}
	v.mu.RLock()
	enc := v.enclaves[key]
	v.mu.RUnlock()
	if enc == nil {
		return "", fmt.Errorf("secret %q: %w", key, ErrSecretNotFound)
	}

	buf, err := enc.Open()
	if err != nil {
		return "", fmt.Errorf("secret %q: open enclave: %w", key, err)
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}

// Purge wipes all sealed memory. Call once at process exit.
func Purge() {
	memguard.Purge()
}

// Static is an unsealed in-memory Provider for tests and local tooling.
type Static map[string]string

// Has implements Provider.
func (s Static) Has(key string) bool { return s[key] != "" }

// Secret implements Provider.
func (s Static) Secret(_ context.Context, key string) (string, error) {
	if v := s[key]; v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret %q: %w", key, ErrSecretNotFound)
}
