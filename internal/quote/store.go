package quote

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/deiragold/spotfeed/internal/model"
)

// ErrNoSymbol rejects a feed event that carries no symbol. The store is
// left untouched.
var ErrNoSymbol = errors.New("quote update missing symbol")

// Store holds the latest known quote per symbol.
type Store struct {
	logger *slog.Logger

	mu     sync.RWMutex
	quotes map[string]model.Quote
}

// NewStore creates an empty quote store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger,
		quotes: make(map[string]model.Quote),
	}
}

// Apply merges one feed event into the store and returns the resulting
// quote. Events without a symbol are rejected with ErrNoSymbol and logged
// as a warning; nothing else about an event is fatal.
func (s *Store) Apply(u model.QuoteUpdate) (model.Quote, error) {
	if u.Symbol == "" {
		s.logger.Warn("dropping malformed quote update", "reason", "missing symbol")
		return model.Quote{}, ErrNoSymbol
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.quotes[u.Symbol]
	merged := Merge(prev, exists, u)
	s.quotes[u.Symbol] = merged
	return merged, nil
}

// Get returns the stored quote for a symbol.
func (s *Store) Get(symbol string) (model.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	return q, ok
}

// Snapshot returns a copy of the symbol → quote mapping. Callers own the
// returned map.
func (s *Store) Snapshot() map[string]model.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.quotes)
}

// Len returns the number of symbols with at least one valid quote.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}

// Merge overlays the fields present in u onto prev and reclassifies the bid
// direction. Pure: no store state involved.
func Merge(prev model.Quote, exists bool, u model.QuoteUpdate) model.Quote {
	q := prev
	q.Symbol = u.Symbol
	q.BidChanged = Classify(prev, exists, u.Bid)

	if u.Bid != nil {
		q.Bid = *u.Bid
	}
	if u.Ask != nil {
		q.Ask = *u.Ask
	}
	if u.High != nil {
		q.High = *u.High
	}
	if u.Low != nil {
		q.Low = *u.Low
	}

	q.ReceivedAt = u.ReceivedAt
	if q.ReceivedAt.IsZero() {
		q.ReceivedAt = time.Now()
	}

	if len(u.Extra) > 0 {
		merged := maps.Clone(prev.Extra)
		if merged == nil {
			merged = make(map[string]json.RawMessage, len(u.Extra))
		}
		maps.Copy(merged, u.Extra)
		q.Extra = merged
	}

	return q
}

// Classify determines the bid direction for an incoming update. The result
// is computed fresh on every update, never carried forward: "none" on first
// observation, when the event carries no bid, or when the bid is unchanged.
func Classify(prev model.Quote, exists bool, bid *float64) model.BidDirection {
	if !exists || bid == nil {
		return model.BidNone
	}
	switch {
	case *bid > prev.Bid:
		return model.BidUp
	case *bid < prev.Bid:
		return model.BidDown
	}
	return model.BidNone
}
