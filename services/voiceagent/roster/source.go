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
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

// gcsScheme prefixes roster locations stored in Google Cloud Storage.
const gcsScheme = "gs://"

// Source supplies the raw roster document.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Source interface {
	// Read returns the full document. A missing document is an error.
	Read(ctx context.Context) ([]byte, error)

	// String names the location for logs.
	String() string
}

// FileSource reads the roster from the local filesystem.
type FileSource struct {
	Path string
}

// Read implements Source.
func (f FileSource) Read(_ context.Context) ([]byte, error) {
	return os.ReadFile(f.Path)
}

// String implements Source.
func (f FileSource) String() string { return f.Path }

// GCSSource reads the roster from a Cloud Storage object.
//
// Description:
//
//	Used when the deployment keeps the roster in a bucket shared with the
//	office staff who maintain it. The client is created once and reused.
//
// Thread Safety: Safe for concurrent use.
type GCSSource struct {
	Bucket string
	Object string
	client *storage.Client
}

// NewGCSSource parses a gs://bucket/object URI and opens a storage client
// using application default credentials.
func NewGCSSource(ctx context.Context, uri string) (*GCSSource, error) {
	bucket, object, err := splitGCSURI(uri)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster: create storage client: %w", err)
	}
	return &GCSSource{Bucket: bucket, Object: object, client: client}, nil
}

// Read implements Source.
func (g *GCSSource) Read(ctx context.Context) ([]byte, error) {
	rc, err := g.client.Bucket(g.Bucket).Object(g.Object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster: open %s: %w", g, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// String implements Source.
func (g *GCSSource) String() string { return gcsScheme + g.Bucket + "/" + g.Object }

// Close releases the storage client.
func (g *GCSSource) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// OpenSource picks a Source for a configured roster location.
//
// Inputs:
//   - location: A filesystem path or a gs://bucket/object URI.
//
// Outputs:
//   - Source: FileSource or *GCSSource.
//   - error: Non-nil only when a GCS client cannot be created.
func OpenSource(ctx context.Context, location string) (Source, error) {
	if strings.HasPrefix(location, gcsScheme) {
		return NewGCSSource(ctx, location)
	}
	return FileSource{Path: location}, nil
}

func splitGCSURI(uri string) (string, string, error) {
	rest := strings.TrimPrefix(uri, gcsScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("roster: invalid gcs uri %q (want gs://bucket/object)", uri)
	}
	return bucket, object, nil
}
