// Package accountsdb stores the committed state of ledger accounts.
package accountsdb

import (
	"bytes"
	"context"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// Account is the persisted form of a ledger account.
type Account struct {
	Lamports   uint64
	Data       []byte
	Owner      chain.Pubkey
	Executable bool
}

func (a Account) Clone() Account {
	a.Data = bytes.Clone(a.Data)
	if a.Data == nil {
		a.Data = []byte{}
	}
	return a
}

func (a Account) Equal(b Account) bool {
	return a.Lamports == b.Lamports &&
		a.Owner == b.Owner &&
		a.Executable == b.Executable &&
		bytes.Equal(a.Data, b.Data)
}

// Store is the account database behind a bank.
type Store interface {
	// Get returns the account and whether it exists.
	Get(ctx context.Context, key chain.Pubkey) (Account, bool, error)

	// Apply writes every update or none of them. A nil account deletes the key.
	Apply(ctx context.Context, updates map[chain.Pubkey]*Account) error

	// Keys lists every stored address in byte order.
	Keys(ctx context.Context) ([]chain.Pubkey, error)

	Close() error
}
