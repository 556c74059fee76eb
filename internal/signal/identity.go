// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package signal

import (
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/momentum/internal/logging"
)

// profile is a browser fingerprint handed to a fresh identity.
type profile struct {
	userAgent string
	language  string
	tzOffset  int
}

var profiles = []profile{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "en-US", 360},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "de-DE", 120},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0", "fr-FR", -60},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15", "en-GB", 480},
	{"Mozilla/5.0 (Windows NT 11.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36", "en-US", 300},
	{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36", "de-DE", 60},
}

// Identity is one client persona: headers, timezone and a cookie jar.
type Identity struct {
	Slot       int
	Generation int
	UserAgent  string
	Language   string
	TZOffset   int

	client *http.Client
	warmed atomic.Bool
}

// Apply sets the identity's headers on req.
func (id *Identity) Apply(req *http.Request) {
	req.Header.Set("User-Agent", id.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", id.Language+",en;q=0.9")
	req.Header.Set("DNT", "1")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
}

// HL is the interface language query parameter.
func (id *Identity) HL() string { return id.Language }

// TZ is the timezone offset query parameter, in minutes.
func (id *Identity) TZ() string { return strconv.Itoa(id.TZOffset) }

// Client returns the identity's HTTP client.
func (id *Identity) Client() *http.Client { return id.client }

// Pool rotates requests across a fixed number of identities.
type Pool struct {
	mu         sync.Mutex
	identities []*Identity
	next       int
	transport  http.RoundTripper
	timeout    time.Duration
}

// NewPool creates size identities sharing transport.
func NewPool(size int, transport http.RoundTripper, timeout time.Duration) *Pool {
	if size <= 0 {
		size = 3
	}
	p := &Pool{
		identities: make([]*Identity, size),
		transport:  transport,
		timeout:    timeout,
	}
	for i := range p.identities {
		p.identities[i] = p.newIdentity(i, 0)
	}
	return p
}

func (p *Pool) newIdentity(slot, generation int) *Identity {
	prof := profiles[(slot+generation*len(p.identities))%len(profiles)]
	// cookiejar.New only fails on a bad PublicSuffixList, and none is passed.
	jar, _ := cookiejar.New(nil)
	return &Identity{
		Slot:       slot,
		Generation: generation,
		UserAgent:  prof.userAgent,
		Language:   prof.language,
		TZOffset:   prof.tzOffset,
		client: &http.Client{
			Transport: p.transport,
			Timeout:   p.timeout,
			Jar:       jar,
		},
	}
}

// Next returns identities round-robin.
func (p *Pool) Next() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.identities[p.next]
	p.next = (p.next + 1) % len(p.identities)
	return id
}

// Invalidate replaces id with a fresh identity in the same slot. Stale
// handles (already replaced) are ignored.
func (p *Pool) Invalidate(id *Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id == nil || id.Slot >= len(p.identities) || p.identities[id.Slot] != id {
		return
	}
	fresh := p.newIdentity(id.Slot, id.Generation+1)
	p.identities[id.Slot] = fresh
	logging.Info().Int("slot", id.Slot).Int("generation", fresh.Generation).Msg("Recreated signal client identity")
}

// Size returns the number of identities.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.identities)
}
