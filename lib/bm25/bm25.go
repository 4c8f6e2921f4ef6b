// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bm25

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// BM25 parameters (Okapi variant, standard values).
const (
	paramK1      = 1.2
	paramB       = 0.75
	paramEpsilon = 0.25
)

// tokenPattern splits text into runs of letters and digits.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Field is a weighted text field. The Weight controls how many times
// this field's tokens are counted in the composite document (higher =
// more influence on ranking). A weight of 0 or negative causes the
// field to be skipped.
type Field struct {
	Text   string
	Weight int
}

// Result is a single search hit with its relevance score.
type Result struct {
	// Document is the number Add returned for the document.
	Document uint32

	// Score is the relevance score. Higher is more relevant. The
	// scale depends on the corpus and is not bounded.
	Score float64
}

// Index is an append-only BM25 (Okapi) index. Each term maps to a
// roaring bitmap of the documents containing it.
//
// Searches are evaluated against a prefix of the documents: a caller
// that adds a batch and then searches with the previous Len sees the
// index as it was before the batch, and Truncate drops the batch
// again. Index is not safe for concurrent use; callers serialize
// access.
type Index struct {
	// postings[term] holds the numbers of documents containing term.
	postings map[string]*roaring.Bitmap

	// termFrequencies[i][term] is the composite term frequency in
	// document i.
	termFrequencies []map[string]uint32

	// lengthPrefix[i] is the total token count of documents [0, i).
	lengthPrefix []int64
}

// New returns an empty index.
func New() *Index {
	return &Index{
		postings:     make(map[string]*roaring.Bitmap),
		lengthPrefix: []int64{0},
	}
}

// Len returns the number of documents added.
func (index *Index) Len() uint32 {
	return uint32(len(index.termFrequencies))
}

// Add indexes a document and returns its number. Numbers are dense
// and increase by one per call.
func (index *Index) Add(fields []Field) uint32 {
	number := index.Len()
	termFrequency := make(map[string]uint32)
	var length int64
	for _, field := range fields {
		if field.Weight <= 0 {
			continue
		}
		for _, token := range Tokenize(field.Text) {
			termFrequency[token] += uint32(field.Weight)
			length += int64(field.Weight)
		}
	}
	for term := range termFrequency {
		bitmap, exists := index.postings[term]
		if !exists {
			bitmap = roaring.New()
			index.postings[term] = bitmap
		}
		bitmap.Add(number)
	}
	index.termFrequencies = append(index.termFrequencies, termFrequency)
	index.lengthPrefix = append(index.lengthPrefix, index.lengthPrefix[number]+length)
	return number
}

// Truncate removes every document numbered n or higher.
func (index *Index) Truncate(n uint32) {
	if n >= index.Len() {
		return
	}
	for _, termFrequency := range index.termFrequencies[n:] {
		for term := range termFrequency {
			bitmap, exists := index.postings[term]
			if !exists {
				continue
			}
			bitmap.RemoveRange(uint64(n), uint64(index.Len()))
			if bitmap.IsEmpty() {
				delete(index.postings, term)
			}
		}
	}
	clear(index.termFrequencies[n:])
	index.termFrequencies = index.termFrequencies[:n]
	index.lengthPrefix = index.lengthPrefix[:n+1]
}

// Search returns up to limit documents among the first visible ones,
// ranked by BM25 relevance to the query. A limit of zero or less
// returns every match. Returns nil if the query produces no tokens or
// matches nothing.
func (index *Index) Search(query string, limit int, visible uint32) []Result {
	visible = min(visible, index.Len())
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 || visible == 0 {
		return nil
	}

	documentCount := float64(visible)
	averageLength := float64(index.lengthPrefix[visible]) / documentCount
	scores := make(map[uint32]float64)

	for _, token := range queryTokens {
		bitmap, exists := index.postings[token]
		if !exists {
			continue
		}
		frequency := float64(bitmap.Rank(visible - 1))
		if frequency == 0 {
			continue
		}
		// Terms that appear in nearly every document get a small
		// positive IDF rather than a negative one.
		idf := math.Log(1 + (documentCount-frequency+0.5)/(frequency+0.5))
		if idf < 0 {
			idf = paramEpsilon
		}

		bitmap.Iterate(func(document uint32) bool {
			if document >= visible {
				return false
			}
			termFrequency := float64(index.termFrequencies[document][token])
			documentLength := float64(index.lengthPrefix[document+1] - index.lengthPrefix[document])
			// IDF * (tf * (k1 + 1)) / (tf + k1 * (1 - b + b * dl/avgdl))
			numerator := termFrequency * (paramK1 + 1)
			denominator := termFrequency + paramK1*(1-paramB+paramB*documentLength/averageLength)
			scores[document] += idf * numerator / denominator
			return true
		})
	}

	results := make([]Result, 0, len(scores))
	for document, score := range scores {
		results = append(results, Result{Document: document, Score: score})
	}
	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Document < results[b].Document
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return nil
	}
	return results
}

// Tokenize splits text into lowercase tokens of letters and digits,
// discarding tokens shorter than 2 characters. This catches "a", "I",
// and other noise words that don't contribute to relevance ranking.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	matches := tokenPattern.FindAllString(lower, -1)

	// Filter short tokens in place.
	tokens := matches[:0]
	for _, match := range matches {
		if len([]rune(match)) >= 2 {
			tokens = append(tokens, match)
		}
	}
	return tokens
}
