// Package match resolves free-text wine mentions against a user's catalog.
//
// Resolve is a pure function: it performs no I/O, and callers pre-scope the
// candidate set to the querying user. Scoring is additive per signal with a
// cap at 1.0; every contributing rule is recorded so results are explainable.
package match

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cellarist/cellarist/internal/wine"
)

// Signal identifies a scoring rule that contributed to a candidate's score.
// Signals are recorded in rule order, which is fixed.
type Signal string

// Scoring signals, in evaluation order.
const (
	SignalNameExact       Signal = "name_exact"
	SignalNameContains    Signal = "name_contains"
	SignalNameTokens      Signal = "name_tokens"
	SignalProducerExact   Signal = "producer_exact"
	SignalProducerContain Signal = "producer_contains"
	SignalTypeExact       Signal = "type_exact"
	SignalTypeInferred    Signal = "type_inferred"
	SignalRegionContains  Signal = "region_contains"
	SignalGrapeOverlap    Signal = "grape_overlap"
)

// Signal weights. These are tuned defaults, not a calibrated contract.
const (
	weightNameExact       = 0.50
	weightNameContains    = 0.35
	weightNameTokens      = 0.20 // scaled by token-overlap ratio
	weightProducerExact   = 0.25
	weightProducerContain = 0.15
	weightTypeExact       = 0.15
	weightTypeInferred    = 0.10
	weightRegionContains  = 0.10
	weightGrapeOverlap    = 0.10
)

// Thresholds partitioning candidates into best / alternatives / noise.
const (
	// AcceptThreshold is the minimum score for a confident resolution.
	AcceptThreshold = 0.6

	// ConsiderThreshold is the minimum score to surface as an alternative.
	ConsiderThreshold = 0.3

	// floorThreshold drops candidates before ranking.
	floorThreshold = 0.2

	// minTokenLength excludes short filler words from token overlap.
	minTokenLength = 3
)

// Candidate is a scored catalog record with the rules that matched.
type Candidate struct {
	Wine    wine.Record
	Score   float64
	Signals []Signal
}

// Result is the outcome of resolving one mention.
//
// Best is nil unless the top candidate clears AcceptThreshold; it always has
// the strictly highest score among the returned candidates. Alternatives hold
// every other candidate at or above ConsiderThreshold, ranked by score with
// lexical name order breaking ties.
type Result struct {
	Best         *Candidate
	Alternatives []Candidate
	Mention      wine.Mention
}

// Resolve scores mention against candidates and ranks the outcome.
// A mention without a name resolves to an empty result.
func Resolve(mention wine.Mention, candidates []wine.Record) Result {
	result := Result{Mention: mention}
	if strings.TrimSpace(mention.Name) == "" {
		return result
	}

	scored := make([]Candidate, 0, len(candidates))
	for _, rec := range candidates {
		c := score(mention, rec)
		if c.Score < floorThreshold {
			continue
		}
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		ni, nj := Fold(scored[i].Wine.Name), Fold(scored[j].Wine.Name)
		if ni != nj {
			return ni < nj
		}
		// Absolute determinism for identical names.
		return scored[i].Wine.ID.String() < scored[j].Wine.ID.String()
	})

	rest := scored
	if len(scored) > 0 && scored[0].Score >= AcceptThreshold {
		best := scored[0]
		result.Best = &best
		rest = scored[1:]
	}
	for _, c := range rest {
		if c.Score >= ConsiderThreshold {
			result.Alternatives = append(result.Alternatives, c)
		}
	}
	return result
}

// score applies every rule to a single candidate.
func score(m wine.Mention, rec wine.Record) Candidate {
	c := Candidate{Wine: rec}

	mName := Fold(m.Name)
	cName := Fold(rec.Name)
	switch {
	case mName == cName:
		c.add(SignalNameExact, weightNameExact)
	case contains(mName, cName):
		c.add(SignalNameContains, weightNameContains)
	default:
		if ratio := tokenOverlap(mName, cName); ratio > 0 {
			c.add(SignalNameTokens, weightNameTokens*ratio)
		}
	}

	if m.Producer != "" && rec.Producer != "" {
		mProd, cProd := Fold(m.Producer), Fold(rec.Producer)
		switch {
		case mProd == cProd:
			c.add(SignalProducerExact, weightProducerExact)
		case contains(mProd, cProd):
			c.add(SignalProducerContain, weightProducerContain)
		}
	}

	if declared, ok := wine.ParseType(m.Type); ok {
		if declared == rec.Type {
			c.add(SignalTypeExact, weightTypeExact)
		}
	} else if inferred, ok := InferType(m); ok && inferred == rec.Type {
		c.add(SignalTypeInferred, weightTypeInferred)
	}

	if m.Region != "" && rec.Region != "" && contains(Fold(m.Region), Fold(rec.Region)) {
		c.add(SignalRegionContains, weightRegionContains)
	}

	if grapesIntersect(m.Grapes, rec.Grapes) {
		c.add(SignalGrapeOverlap, weightGrapeOverlap)
	}

	if c.Score > 1.0 {
		c.Score = 1.0
	}
	return c
}

func (c *Candidate) add(s Signal, w float64) {
	c.Score += w
	c.Signals = append(c.Signals, s)
}

// contains reports one-sided containment in either direction.
func contains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// tokenOverlap returns common tokens / mention tokens, where tokens are
// whitespace-separated words longer than two characters.
func tokenOverlap(mention, candidate string) float64 {
	mTokens := tokens(mention)
	if len(mTokens) == 0 {
		return 0
	}
	cTokens := make(map[string]struct{})
	for _, t := range tokens(candidate) {
		cTokens[t] = struct{}{}
	}
	common := 0
	for _, t := range mTokens {
		if _, ok := cTokens[t]; ok {
			common++
		}
	}
	return float64(common) / float64(len(mTokens))
}

func tokens(s string) []string {
	var out []string
	for _, t := range strings.Fields(s) {
		if len([]rune(t)) >= minTokenLength {
			out = append(out, t)
		}
	}
	return out
}

func grapesIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, g := range a {
		set[Fold(g)] = struct{}{}
	}
	for _, g := range b {
		if _, ok := set[Fold(g)]; ok {
			return true
		}
	}
	return false
}

// Fold lowercases and removes diacritics for comparison. The transformer
// chain is stateful, so it is built per call; Resolve must stay safe for
// concurrent use without coordination.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		return out
	}
	return s
}
