// Package extract turns free conversational text into a structured
// item -> quantity mapping against a known catalog.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"concierge/internal/menu"
)

// patternCache holds compiled patterns per catalog phrase. Catalogs are small
// and immutable, so the cache only ever grows to the catalog size.
var patternCache sync.Map

// phrasePattern returns the compiled pattern for one catalog phrase:
// an optional leading integer, optional whitespace, then the literal phrase.
func phrasePattern(phrase string) *regexp.Regexp {
	if cached, ok := patternCache.Load(phrase); ok {
		return cached.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(\d+)?\s*` + regexp.QuoteMeta(phrase))
	patternCache.Store(phrase, re)
	return re
}

// Extract scans an utterance for catalog item mentions and returns the matched
// item -> quantity mapping. Matching is case-insensitive and per-phrase: each
// catalog entry is searched independently for every non-overlapping occurrence
// of "optional integer, optional whitespace, literal phrase". A missing leading
// integer means quantity 1; repeated mentions of the same item accumulate.
// Items not mentioned are absent from the result.
//
// Extraction is a pure function of its inputs: no state is carried between
// calls, and identical inputs always produce identical output. When one
// catalog phrase is a substring of another, both match independently; there is
// no longest-match precedence.
func Extract(utterance string, cat *menu.Catalog) map[string]int {
	result := make(map[string]int)
	lowered := strings.ToLower(utterance)

	for _, name := range cat.Names() {
		matches := phrasePattern(name).FindAllStringSubmatch(lowered, -1)
		for _, m := range matches {
			qty := 1
			if m[1] != "" {
				if n, err := strconv.Atoi(m[1]); err == nil {
					qty = n
				}
			}
			result[name] += qty
		}
	}

	// An explicit "0 coke" contributes nothing; zero-quantity items are
	// absent from the result, never emitted.
	for name, qty := range result {
		if qty <= 0 {
			delete(result, name)
		}
	}

	return result
}

// Subtotal computes the catalog-priced subtotal of an extracted mapping.
// Unknown items contribute nothing.
func Subtotal(items map[string]int, cat *menu.Catalog) float64 {
	var total float64
	for name, qty := range items {
		if price, ok := cat.Lookup(name); ok {
			total += price * float64(qty)
		}
	}
	return total
}
