// Package memory provides an in-memory store.Store implementation,
// useful for tests and for hosts that do not need durable persistence.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	ledger "github.com/xraph/creditledger"
	"github.com/xraph/creditledger/id"
	"github.com/xraph/creditledger/store"
	"github.com/xraph/creditledger/types"
)

// Store is a sync.RWMutex-guarded in-memory implementation of
// store.Store. The relative-update guarantee store.Store documents for
// AddDelta is provided here by holding the lock across the read and the
// write; a SQL-backed store instead expresses it as a single
// "credit = credit + ?" statement.
type Store struct {
	mu sync.RWMutex

	balances map[string]*store.Balance
	entries  []store.LedgerEntry
	tickets  map[string]store.PaymentTicket
	codes    map[string]store.RedemptionCode
}

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{
		balances: make(map[string]*store.Balance),
		tickets:  make(map[string]store.PaymentTicket),
		codes:    make(map[string]store.RedemptionCode),
	}
}

func (s *Store) EnsureBalance(_ context.Context, userID string, defaultCredit types.Decimal) (store.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.balances[userID]; ok {
		return *b, nil
	}

	now := time.Now()
	b := &store.Balance{
		Entity: types.NewEntity(),
		UserID: userID,
		Credit: defaultCredit,
	}
	b.CreatedAt, b.UpdatedAt = now, now
	s.balances[userID] = b
	return *b, nil
}

func (s *Store) AddDelta(_ context.Context, userID string, delta types.Decimal, detail types.LedgerDetail) (store.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[userID]
	if !ok {
		now := time.Now()
		b = &store.Balance{Entity: types.NewEntity(), UserID: userID}
		b.CreatedAt, b.UpdatedAt = now, now
		s.balances[userID] = b
	}
	b.Credit = b.Credit.Add(delta)
	b.Touch()

	entry := store.LedgerEntry{
		ID:          id.NewLedgerEntryID(),
		UserID:      userID,
		CreditDelta: delta,
		Detail:      detail,
		CreatedAt:   time.Now(),
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *Store) SetAbsolute(_ context.Context, userID string, newCredit types.Decimal, detail types.LedgerDetail) (store.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[userID]
	if !ok {
		now := time.Now()
		b = &store.Balance{Entity: types.NewEntity(), UserID: userID}
		b.CreatedAt, b.UpdatedAt = now, now
		s.balances[userID] = b
	}
	delta := newCredit.Sub(b.Credit)
	b.Credit = newCredit
	b.Touch()

	entry := store.LedgerEntry{
		ID:          id.NewLedgerEntryID(),
		UserID:      userID,
		CreditDelta: delta,
		Detail:      detail,
		CreatedAt:   time.Now(),
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, opts store.ListOpts) ([]store.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]store.LedgerEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if len(opts.UserIDs) > 0 && !contains(opts.UserIDs, e.UserID) {
			continue
		}
		matches = append(matches, e)
	}

	start := opts.Offset
	if start > len(matches) {
		start = len(matches)
	}
	end := len(matches)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return matches[start:end], nil
}

func (s *Store) CountLedgerEntries(_ context.Context, userIDs []string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(userIDs) == 0 {
		return int64(len(s.entries)), nil
	}
	var count int64
	for _, e := range s.entries {
		if contains(userIDs, e.UserID) {
			count++
		}
	}
	return count, nil
}

func (s *Store) RangeLedgerEntries(_ context.Context, start, end time.Time) ([]store.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.LedgerEntry, 0)
	for _, e := range s.entries {
		if !e.CreatedAt.Before(start) && e.CreatedAt.Before(end) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) PruneLedgerEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var pruned int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return pruned, nil
}

func (s *Store) CreateTicket(_ context.Context, t store.PaymentTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tickets[t.ID]; exists {
		return ledger.ErrAlreadyExists
	}
	s.tickets[t.ID] = t
	return nil
}

func (s *Store) GetTicket(_ context.Context, id string) (store.PaymentTicket, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	return t, ok, nil
}

func (s *Store) SetTicketCallback(_ context.Context, id string, callback map[string]string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return false, ledger.ErrTicketNotFound
	}
	if t.HasCallback() {
		return false, nil
	}
	t.Callback = callback
	s.tickets[id] = t
	return true, nil
}

func (s *Store) RangeTickets(_ context.Context, start, end time.Time) ([]store.PaymentTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.PaymentTicket, 0)
	for _, t := range s.tickets {
		if !t.CreatedAt.Before(start) && t.CreatedAt.Before(end) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) IssueRedemptionCodes(_ context.Context, codes []store.RedemptionCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range codes {
		s.codes[c.Code] = c
	}
	return nil
}

func (s *Store) GetRedemptionCode(_ context.Context, code string) (store.RedemptionCode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.codes[code]
	return c, ok, nil
}

func (s *Store) RedeemCode(_ context.Context, code, userID string, now time.Time) (store.RedemptionCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return store.RedemptionCode{}, ledger.ErrCodeNotFound
	}
	if c.ReceivedAt != nil {
		return store.RedemptionCode{}, ledger.ErrCodeAlreadyUsed
	}
	if c.ExpiredAt != nil && now.After(*c.ExpiredAt) {
		return store.RedemptionCode{}, ledger.ErrCodeExpired
	}

	c.UserID = &userID
	c.ReceivedAt = &now
	s.codes[code] = c
	return c, nil
}

func (s *Store) ListRedemptionCodes(_ context.Context, keyword string) ([]store.RedemptionCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.RedemptionCode, 0)
	for _, c := range s.codes {
		if keyword == "" || strings.Contains(c.Code, keyword) || strings.Contains(c.Purpose, keyword) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) UpdateRedemptionCode(_ context.Context, code store.RedemptionCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.codes[code.Code]
	if !ok {
		return ledger.ErrCodeNotFound
	}
	if existing.ReceivedAt != nil {
		return ledger.ErrCodeAlreadyUsed
	}
	s.codes[code.Code] = code
	return nil
}

func (s *Store) DeleteRedemptionCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.codes[code]
	if !ok {
		return ledger.ErrCodeNotFound
	}
	if existing.ReceivedAt != nil {
		return ledger.ErrCodeAlreadyUsed
	}
	delete(s.codes, code)
	return nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
