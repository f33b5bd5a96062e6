package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// BM25Document is a raw document handed to the index.
type BM25Document struct {
	ID      string
	Content string
}

// BatchFailure records one document that could not be indexed during a
// batch ingest.
type BatchFailure struct {
	ID     string
	Reason string
}

// BatchResult reports a best-effort batch ingest: how many documents made
// it in and which ones did not.
type BatchResult struct {
	Succeeded int
	Failures  []BatchFailure
}

// bm25Entry is an indexed document.
type bm25Entry struct {
	content string
	terms   map[string]int
	length  int
}

// BM25Index is an in-process inverted index with Okapi BM25 scoring.
// Safe for concurrent use.
type BM25Index struct {
	mu       sync.RWMutex
	docs     map[string]*bm25Entry
	docFreq  map[string]int
	totalLen int
}

// NewBM25Index creates an empty index.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		docs:    make(map[string]*bm25Entry),
		docFreq: make(map[string]int),
	}
}

// tokenize lowercases and splits text into terms. Runs of letters and
// digits form one term; Han characters are indexed individually since
// Chinese has no word boundaries to split on.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// Add indexes a document, replacing any previous document with the same id.
func (idx *BM25Index) Add(id, content string) {
	terms := tokenize(content)

	termCounts := make(map[string]int, len(terms))
	for _, term := range terms {
		termCounts[term]++
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if old, ok := idx.docs[id]; ok {
		idx.removeLocked(id, old)
	}

	entry := &bm25Entry{
		content: content,
		terms:   termCounts,
		length:  len(terms),
	}
	idx.docs[id] = entry
	idx.totalLen += entry.length
	for term := range termCounts {
		idx.docFreq[term]++
	}
}

// AddBatch indexes documents best-effort: documents with empty ids or no
// indexable terms are recorded as failures and skipped, never fatal.
func (idx *BM25Index) AddBatch(docs []BM25Document) BatchResult {
	var result BatchResult
	for _, doc := range docs {
		switch {
		case doc.ID == "":
			result.Failures = append(result.Failures, BatchFailure{
				ID:     doc.ID,
				Reason: "empty document id",
			})
		case len(tokenize(doc.Content)) == 0:
			result.Failures = append(result.Failures, BatchFailure{
				ID:     doc.ID,
				Reason: "no indexable terms",
			})
		default:
			idx.Add(doc.ID, doc.Content)
			result.Succeeded++
		}
	}
	return result
}

// Delete removes a document from the index. Unknown ids are ignored.
func (idx *BM25Index) Delete(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if entry, ok := idx.docs[id]; ok {
		idx.removeLocked(id, entry)
	}
}

// removeLocked unindexes an entry. Caller holds the write lock.
func (idx *BM25Index) removeLocked(id string, entry *bm25Entry) {
	for term := range entry.terms {
		idx.docFreq[term]--
		if idx.docFreq[term] <= 0 {
			delete(idx.docFreq, term)
		}
	}
	idx.totalLen -= entry.length
	delete(idx.docs, id)
}

// Clear drops every indexed document.
func (idx *BM25Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.docs = make(map[string]*bm25Entry)
	idx.docFreq = make(map[string]int)
	idx.totalLen = 0
}

// Len returns the number of indexed documents.
func (idx *BM25Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Search scores every document against the query terms with Okapi BM25
// and returns up to limit results in descending score order. Documents
// matching no query term are omitted.
func (idx *BM25Index) Search(query string, limit int) []Result {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.docs)
	if n == 0 {
		return nil
	}
	avgLen := float64(idx.totalLen) / float64(n)
	if avgLen == 0 {
		avgLen = 1
	}

	var results []Result
	for id, entry := range idx.docs {
		var score float64
		for _, term := range queryTerms {
			tf := float64(entry.terms[term])
			if tf == 0 {
				continue
			}
			df := float64(idx.docFreq[term])
			idf := math.Log(1 + (float64(n)-df+0.5)/(df+0.5))
			score += idf * tf * (bm25K1 + 1) /
				(tf + bm25K1*(1-bm25B+bm25B*float64(entry.length)/avgLen))
		}
		if score > 0 {
			results = append(results, Result{
				ID:      id,
				Content: entry.content,
				Score:   score,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results
}
