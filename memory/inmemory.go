package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryFactService is a map-backed FactMemoryService. Facts are indexed
// by user and matched by case-insensitive substring search.
type InMemoryFactService struct {
	mu     sync.Mutex
	nextID int64
	facts  map[int64]*Fact
}

// NewInMemoryFactService builds an empty fact store.
func NewInMemoryFactService() *InMemoryFactService {
	return &InMemoryFactService{nextID: 1, facts: make(map[int64]*Fact)}
}

func (s *InMemoryFactService) AddFact(_ context.Context, fact Fact) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fact.ID = s.nextID
	s.nextID++
	if fact.Confidence == 0 {
		fact.Confidence = 1.0
	}
	if fact.Source == "" {
		fact.Source = "conversation"
	}
	if fact.Category == "" {
		fact.Category = "general"
	}
	fact.CreatedAt = time.Now().UTC()
	fact.Active = true
	s.facts[fact.ID] = &fact
	return fact.ID, nil
}

func (s *InMemoryFactService) Facts(_ context.Context, userID, category string) ([]Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Fact
	for _, f := range s.facts {
		if !f.Active || f.UserID != userID {
			continue
		}
		if category != "" && f.Category != category {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryFactService) SearchFacts(ctx context.Context, userID, query string) ([]Fact, error) {
	all, err := s.Facts(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var out []Fact
	for _, f := range all {
		if strings.Contains(strings.ToLower(f.Text), needle) ||
			strings.Contains(strings.ToLower(f.Entity), needle) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *InMemoryFactService) UpdateFact(_ context.Context, id int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facts[id]
	if !ok {
		return ErrFactNotFound
	}
	f.Text = text
	f.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryFactService) DeactivateFact(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facts[id]
	if !ok {
		return ErrFactNotFound
	}
	f.Active = false
	return nil
}

// InMemoryVectorService is a VectorMemoryService that scores records by
// token overlap with the query. Good enough for tests and local wiring;
// a real deployment swaps in an embedding-backed implementation.
type InMemoryVectorService struct {
	mu      sync.Mutex
	records []Record
}

// NewInMemoryVectorService builds an empty vector store.
func NewInMemoryVectorService() *InMemoryVectorService {
	return &InMemoryVectorService{}
}

func (s *InMemoryVectorService) AddMemory(_ context.Context, text string, metadata map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := Record{ID: uuid.NewString(), Text: text, Metadata: metadata}
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *InMemoryVectorService) SimilaritySearch(_ context.Context, query string, limit int) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queryTokens := tokenize(query)
	var out []SearchResult
	for _, rec := range s.records {
		score := overlap(queryTokens, tokenize(rec.Text))
		if score > 0 {
			out = append(out, SearchResult{Record: rec, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tokens[strings.Trim(tok, ".,!?;:\"'")] = true
	}
	return tokens
}

// overlap is the fraction of query tokens present in the record.
func overlap(query, record map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for tok := range query {
		if record[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
