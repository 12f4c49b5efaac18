package accountsdb

import (
	"context"
	"slices"
	"sync"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// MemStore keeps accounts in a map. Reads and writes copy the data.
type MemStore struct {
	mu       sync.RWMutex
	accounts map[chain.Pubkey]Account
}

func NewMemStore() *MemStore {
	return &MemStore{accounts: make(map[chain.Pubkey]Account)}
}

func (s *MemStore) Get(ctx context.Context, key chain.Pubkey) (Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[key]
	if !ok {
		return Account{}, false, nil
	}
	return a.Clone(), true, nil
}

func (s *MemStore) Apply(ctx context.Context, updates map[chain.Pubkey]*Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, a := range updates {
		if a == nil {
			delete(s.accounts, key)
			continue
		}
		s.accounts[key] = a.Clone()
	}
	return nil
}

func (s *MemStore) Keys(ctx context.Context) ([]chain.Pubkey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]chain.Pubkey, 0, len(s.accounts))
	for k := range s.accounts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, chain.ComparePubkeys)
	return keys, nil
}

func (s *MemStore) Close() error {
	return nil
}
