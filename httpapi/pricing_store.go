package httpapi

import (
	"sync"

	"github.com/xraph/creditledger/pricing"
)

// PriceStore is a mutex-guarded, in-memory model pricing table backing
// the GET/PUT /models/price endpoints. The ledger core takes pricing
// resolution through an injected pricing.Lookup function rather than
// owning a model catalogue of its own — the catalogue is an external
// collaborator. PriceStore is the smallest thing that satisfies that
// function when the host application has no catalogue to wire in
// instead.
type PriceStore struct {
	mu     sync.RWMutex
	models map[string]pricing.Model
}

// NewPriceStore builds an empty PriceStore.
func NewPriceStore() *PriceStore {
	return &PriceStore{models: make(map[string]pricing.Model)}
}

// Lookup implements pricing.Lookup.
func (s *PriceStore) Lookup(modelID string) (pricing.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[modelID]
	return m, ok
}

// Set overrides the pricing for modelID.
func (s *PriceStore) Set(modelID string, m pricing.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[modelID] = m
}

// Delete removes any override for modelID.
func (s *PriceStore) Delete(modelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.models, modelID)
}

// Snapshot returns a copy of every configured model's pricing.
func (s *PriceStore) Snapshot() map[string]pricing.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]pricing.Model, len(s.models))
	for k, v := range s.models {
		out[k] = v
	}
	return out
}
