package index

import (
	"math"
	"sort"

	"tagmatch/internal"
	"tagmatch/internal/util"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Lexical is an in-memory inverted index over the stored document texts,
// scored with BM25. It exists to catch exact code and brand tokens
// ("TBAMTAG4507") that dense embeddings under-rank when the token is
// out-of-vocabulary. Rebuilt from the store, never persisted on its own.
type Lexical struct {
	postings map[string]map[string]int
	docLens  map[string]int
	totalLen int
	docCount int
}

type LexicalHit struct {
	ItemID string
	Score  float64
}

func BuildLexical(items []internal.CatalogItem) *Lexical {
	idx := &Lexical{
		postings: map[string]map[string]int{},
		docLens:  map[string]int{},
	}
	for _, item := range items {
		tokens := util.Tokenize(item.SearchText)
		if len(tokens) == 0 {
			continue
		}
		idx.docCount++
		idx.docLens[item.ItemID] = len(tokens)
		idx.totalLen += len(tokens)
		for _, token := range tokens {
			if idx.postings[token] == nil {
				idx.postings[token] = map[string]int{}
			}
			idx.postings[token][item.ItemID]++
		}
	}
	return idx
}

// Search returns the top k documents by BM25 over the query tokens. Scores
// are raw (unbounded); callers use them for candidate discovery, not for
// confidence decisions.
func (l *Lexical) Search(query string, k int) []LexicalHit {
	if l.docCount == 0 || k <= 0 {
		return nil
	}
	queryTokens := util.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}
	avgLen := float64(l.totalLen) / float64(l.docCount)

	scores := map[string]float64{}
	for _, token := range queryTokens {
		posting, ok := l.postings[token]
		if !ok {
			continue
		}
		idf := math.Log(1 + (float64(l.docCount)-float64(len(posting))+0.5)/(float64(len(posting))+0.5))
		for itemID, tf := range posting {
			docLen := float64(l.docLens[itemID])
			norm := float64(tf) * (bm25K1 + 1) /
				(float64(tf) + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
			scores[itemID] += idf * norm
		}
	}
	if len(scores) == 0 {
		return nil
	}

	hits := make([]LexicalHit, 0, len(scores))
	for itemID, score := range scores {
		hits = append(hits, LexicalHit{ItemID: itemID, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ItemID < hits[j].ItemID
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
