// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

// Package market holds the per-market profiles (country name, timezone,
// prime time, relevance rubric, local search variants) and timeframe parsing.
package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // profiles must resolve without a system zoneinfo
)

// ErrUnsupported is returned for market codes without a profile.
var ErrUnsupported = errors.New("unsupported market")

// Profile describes one target market.
type Profile struct {
	Code        string
	CountryName string
	Timezone    string
	// PrimeTime is the local [start, end) hour range of peak viewing.
	PrimeTime [2]int
	// Criteria is the relevance rubric embedded into scorer prompts.
	Criteria string
	// GenericTerms are broad market-trending searches used as the last
	// collection tier and by the fallback pass.
	GenericTerms []string

	baseVariants  []string
	extraVariants []string
	extrasAllowed func(query string) bool
}

const maxVariants = 8

var profiles = map[string]*Profile{
	"DE": {
		Code:        "DE",
		CountryName: "Germany",
		Timezone:    "Europe/Berlin",
		PrimeTime:   [2]int{19, 22},
		Criteria: `Criteria for Germany relevance:
- German language content (Deutsch) or German subtitles
- German YouTubers or Germany-focused content
- Discussion in German communities (German comments)
- Topics relevant for German audience (culture, news, entertainment)
- Views/engagement during German prime time (19-22 Uhr MEZ/MESZ)
- German cultural references, humor, and context
- Content about German cities, events, or personalities
- Use of German internet slang and expressions`,
		GenericTerms:  []string{"trending deutschland", "viral deutschland", "neu deutschland"},
		baseVariants:  []string{"{q}", "{q} deutsch", "deutsche {q}", "{q} germany", "{q} deutschland"},
		extraVariants: []string{"deutsches {q}", "{q} auf deutsch", "{q} german"},
		extrasAllowed: notStopWord("der", "die", "das", "und", "oder"),
	},
	"US": {
		Code:        "US",
		CountryName: "USA",
		Timezone:    "America/New_York",
		PrimeTime:   [2]int{20, 23},
		Criteria: `Criteria for USA relevance:
- English language content (American English)
- American creators or US-focused content
- Discussion patterns typical for US audience
- Topics relevant for American viewers (culture, politics, sports)
- Views/engagement during US prime times (EST/PST)
- American cultural references and humor
- Content about US cities, states, or American personalities
- Use of American slang and expressions`,
		GenericTerms:  []string{"trending usa", "viral america", "trending now us"},
		baseVariants:  []string{"{q}", "{q} america", "american {q}", "{q} usa", "{q} us"},
		extraVariants: []string{"{q} united states", "{q} american style", "us {q}"},
		extrasAllowed: singleWord,
	},
	"FR": {
		Code:        "FR",
		CountryName: "France",
		Timezone:    "Europe/Paris",
		PrimeTime:   [2]int{20, 22},
		Criteria: `Criteria for France relevance:
- French language content (Français) or French subtitles
- French creators or France-focused content
- French cultural references and discussions
- Topics relevant for French audience (culture, politics, entertainment)
- Views/engagement during French prime times (20-22h CET)
- French humor, cultural nuances, and references
- Content about French cities, regions, or French personalities
- Use of French internet slang and expressions`,
		GenericTerms:  []string{"tendances france", "viral france", "trending france"},
		baseVariants:  []string{"{q}", "{q} français", "{q} france", "français {q}", "{q} francais"},
		extraVariants: []string{"{q} en français", "french {q}", "{q} french"},
		extrasAllowed: notStopWord("le", "la", "les", "et", "ou"),
	},
	"JP": {
		Code:        "JP",
		CountryName: "Japan",
		Timezone:    "Asia/Tokyo",
		PrimeTime:   [2]int{19, 22},
		Criteria: `Criteria for Japan relevance:
- Japanese language content (hiragana, katakana, kanji) or Japanese subtitles
- Japanese creators or Japan-focused content
- Japanese cultural context and references
- Topics relevant for Japanese audience (culture, anime, J-pop, etc.)
- Views/engagement during Japanese prime times (19-22h JST)
- Japanese humor, cultural nuances, and references
- Content about Japanese cities, culture, or Japanese personalities
- Use of Japanese internet culture and expressions`,
		GenericTerms:  []string{"急上昇 日本", "話題 動画", "trending japan"},
		baseVariants:  []string{"{q}", "{q} 日本", "{q} japan", "japanese {q}", "{q} にほん"},
		extraVariants: []string{"{q} 日本語", "日本の{q}", "{q} jpn"},
		extrasAllowed: singleWord,
	},
}

func notStopWord(words ...string) func(string) bool {
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[w] = struct{}{}
	}
	return func(q string) bool {
		_, isStop := stop[strings.ToLower(strings.TrimSpace(q))]
		return !isStop
	}
}

func singleWord(q string) bool {
	return len(strings.Fields(q)) == 1
}

// Lookup returns the profile for code (case-insensitive).
func Lookup(code string) (*Profile, error) {
	p, ok := profiles[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, code)
	}
	return p, nil
}

// Codes returns every market code with a profile, sorted.
func Codes() []string {
	codes := make([]string, 0, len(profiles))
	for c := range profiles {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// LocalVariants returns the market's local search variants for query,
// deduplicated in order and capped at 8. The query itself is always first.
func (p *Profile) LocalVariants(query string) []string {
	query = strings.TrimSpace(query)
	templates := p.baseVariants
	if p.extrasAllowed == nil || p.extrasAllowed(query) {
		templates = append(append([]string{}, p.baseVariants...), p.extraVariants...)
	}

	seen := make(map[string]struct{}, len(templates))
	out := make([]string, 0, maxVariants)
	for _, tmpl := range templates {
		term := strings.ReplaceAll(tmpl, "{q}", query)
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, term)
		if len(out) == maxVariants {
			break
		}
	}
	return out
}

// Location loads the market's timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsPrimeTime reports whether t falls inside the market's local prime time.
func (p *Profile) IsPrimeTime(t time.Time) bool {
	h := t.In(p.Location()).Hour()
	return h >= p.PrimeTime[0] && h < p.PrimeTime[1]
}
