// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package crm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/redact"
)

// DefaultListingLimit caps search results read back to a caller.
const DefaultListingLimit = 5

// feedTTL is how long a fetched listings feed is reused.
const feedTTL = 5 * time.Minute

// SearchListings finds listings matching q.
//
// Description:
//
//	The syndication feed (every active MLS listing for the brokerage) is
//	searched first when configured. When it yields nothing, or cannot be
//	fetched, the manual listings endpoint is searched. Results are
//	filtered locally in both cases since neither source filters reliably.
//
// Outputs:
//   - []Listing: At most q.Limit (default DefaultListingLimit) matches.
//   - error: Only when the manual listings request fails.
func (c *Client) SearchListings(ctx context.Context, q ListingQuery) ([]Listing, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListingLimit
	}

	if c.feedURL != "" {
		all, err := c.feed(ctx)
		if err != nil {
			c.logger.Warn("listings feed unavailable, using manual listings", slog.String("error", err.Error()))
		} else if hits := filterListings(all, q, limit); len(hits) > 0 {
			return hits, nil
		}
	}

	params := url.Values{}
	set := func(k, v string) {
		if v != "" {
			params.Set(k, v)
		}
	}
	set("address", q.Address)
	set("city", q.City)
	set("state", q.State)
	set("zip", q.Zip)
	set("propertyType", q.PropertyType)
	set("status", q.Status)
	if q.MinPrice > 0 {
		params.Set("minPrice", strconv.FormatFloat(q.MinPrice, 'f', 0, 64))
	}
	if q.MaxPrice > 0 {
		params.Set("maxPrice", strconv.FormatFloat(q.MaxPrice, 'f', 0, 64))
	}

	var out struct {
		Data []Listing `json:"data"`
	}
	if err := c.do(ctx, "search_listings", http.MethodGet, "manuallistings", params, nil, &out); err != nil {
		return nil, err
	}
	return filterListings(out.Data, q, limit), nil
}

func filterListings(all []Listing, q ListingQuery, limit int) []Listing {
	var hits []Listing
	for _, l := range all {
		if q.matches(l) {
			hits = append(hits, l)
			if len(hits) == limit {
				break
			}
		}
	}
	return hits
}

// =============================================================================
// Syndication feed
// =============================================================================

// feedCache holds the last parsed feed.
type feedCache struct {
	mu      sync.Mutex
	group   singleflight.Group
	fetched time.Time
	items   []Listing
}

func (c *Client) feed(ctx context.Context) ([]Listing, error) {
	fc := &c.feedCache
	fc.mu.Lock()
	if time.Since(fc.fetched) < feedTTL {
		items := fc.items
		fc.mu.Unlock()
		return items, nil
	}
	fc.mu.Unlock()

	v, err, _ := fc.group.Do("feed", func() (any, error) {
		items, err := c.fetchFeed(ctx)
		if err != nil {
			return nil, err
		}
		fc.mu.Lock()
		fc.items, fc.fetched = items, time.Now()
		fc.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Listing), nil
}

func (c *Client) fetchFeed(ctx context.Context) ([]Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("listings feed: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The feed URL embeds its access key.
		return nil, errors.New("listings feed: " + redact.SafeLogString(strings.ReplaceAll(err.Error(), c.feedURL, "<feed>")))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listings feed: status %d", resp.StatusCode)
	}
	items, err := ParseListingsFeed(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("listings feed loaded", slog.Int("listings", len(items)))
	return items, nil
}

// feedListing is one <listing> element. Exports vary in tag names, so each
// field lists its alternates.
type feedListing struct {
	Address          string `xml:"address"`
	StreetAddress    string `xml:"street_address"`
	City             string `xml:"city"`
	State            string `xml:"state"`
	Zip              string `xml:"zip"`
	PostalCode       string `xml:"postal_code"`
	MLSNumber        string `xml:"mls_number"`
	MLSID            string `xml:"mls_id"`
	ListingID        string `xml:"listing_id"`
	Price            string `xml:"price"`
	ListPrice        string `xml:"list_price"`
	Bedrooms         string `xml:"bedrooms"`
	Beds             string `xml:"beds"`
	Bathrooms        string `xml:"bathrooms"`
	Baths            string `xml:"baths"`
	SquareFeet       string `xml:"square_feet"`
	Sqft             string `xml:"sqft"`
	Status           string `xml:"status"`
	ListingStatus    string `xml:"listing_status"`
	PropertyType     string `xml:"property_type"`
	Type             string `xml:"type"`
	AgentID          string `xml:"agent_id"`
	ListingAgentID   string `xml:"listing_agent_id"`
	AgentName        string `xml:"agent_name"`
	ListingAgent     string `xml:"listing_agent"`
	AgentEmail       string `xml:"agent_email"`
	AgentPhone       string `xml:"agent_phone"`
	AgentDirectPhone string `xml:"agent_direct_phone"`
	ListingOffice    string `xml:"listing_office"`
	BrokerPhone      string `xml:"broker_phone"`
	BrokerEmail      string `xml:"broker_email"`
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func numberOf(vals ...string) float64 {
	for _, v := range vals {
		v = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(v))
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return 0
}

func (f feedListing) listing() Listing {
	return Listing{
		MLSNumber:     firstOf(f.MLSNumber, f.MLSID, f.ListingID),
		Address:       firstOf(f.Address, f.StreetAddress),
		City:          firstOf(f.City),
		State:         firstOf(f.State),
		Zip:           firstOf(f.Zip, f.PostalCode),
		Price:         numberOf(f.Price, f.ListPrice),
		Bedrooms:      numberOf(f.Bedrooms, f.Beds),
		Bathrooms:     numberOf(f.Bathrooms, f.Baths),
		SquareFeet:    numberOf(f.SquareFeet, f.Sqft),
		PropertyType:  firstOf(f.PropertyType, f.Type),
		Status:        firstOf(f.Status, f.ListingStatus),
		AgentName:     firstOf(f.AgentName, f.ListingAgent),
		AgentPhone:    firstOf(f.AgentPhone, f.AgentDirectPhone),
		AgentEmail:    firstOf(f.AgentEmail),
		AgentKvcoreID: firstOf(f.AgentID, f.ListingAgentID),
		BrokerageName: firstOf(f.ListingOffice),
		BrokerPhone:   firstOf(f.BrokerPhone),
		BrokerEmail:   firstOf(f.BrokerEmail),
	}
}

// ParseListingsFeed reads every <listing> element at any depth. Listings
// without an address or a positive price are skipped.
func ParseListingsFeed(r io.Reader) ([]Listing, error) {
	dec := xml.NewDecoder(r)
	var out []Listing
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("listings feed: parse: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "listing" {
			continue
		}
		var fl feedListing
		if err := dec.DecodeElement(&fl, &start); err != nil {
			return nil, fmt.Errorf("listings feed: parse listing: %w", err)
		}
		if l := fl.listing(); l.Address != "" && l.Price > 0 {
			out = append(out, l)
		}
	}
}
