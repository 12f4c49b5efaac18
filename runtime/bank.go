package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luca-patrignani/mental-lottery/accountsdb"
	"github.com/luca-patrignani/mental-lottery/chain"
	"github.com/luca-patrignani/mental-lottery/ledger"
)

// Bank executes transactions against an account store. Transactions are
// processed one at a time; each either commits all its account changes or
// none of them.
type Bank struct {
	mu       sync.Mutex
	store    accountsdb.Store
	programs map[chain.Pubkey]chain.Entrypoint
	rent     chain.Rent
	ledger   *ledger.Blockchain
	metrics  *metrics
	logger   *slog.Logger

	registerer prometheus.Registerer
	now        func() time.Time
}

// Option configures a Bank.
type Option func(*Bank)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bank) { b.logger = logger }
}

// WithRent sets the rent parameters published in the rent sysvar.
func WithRent(rent chain.Rent) Option {
	return func(b *Bank) { b.rent = rent }
}

// WithRegisterer registers the bank's metrics. Without it metrics are kept
// but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(b *Bank) { b.registerer = reg }
}

func WithLedger(bc *ledger.Blockchain) Option {
	return func(b *Bank) { b.ledger = bc }
}

// WithClock sets the clock of the ledger the bank creates for itself.
func WithClock(now func() time.Time) Option {
	return func(b *Bank) { b.now = now }
}

// NewBank opens a bank over store and writes the builtin accounts: the system
// program and the rent sysvar.
func NewBank(ctx context.Context, store accountsdb.Store, opts ...Option) (*Bank, error) {
	b := &Bank{
		store:    store,
		programs: make(map[chain.Pubkey]chain.Entrypoint),
		rent:     chain.DefaultRent(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.ledger == nil {
		b.ledger = ledger.NewBlockchain(ledger.WithClock(b.now))
	}
	b.metrics = newMetrics(b.registerer)

	builtins := map[chain.Pubkey]*accountsdb.Account{
		chain.SystemProgramID: {
			Lamports:   1,
			Data:       []byte("system_program"),
			Owner:      chain.NativeLoaderID,
			Executable: true,
		},
		chain.SysvarRentID: {
			Lamports: 1,
			Data:     b.rent.Encode(),
			Owner:    chain.SysvarOwnerID,
		},
	}
	if err := store.Apply(ctx, builtins); err != nil {
		return nil, fmt.Errorf("write builtin accounts: %w", err)
	}
	return b, nil
}

// RegisterProgram deploys entrypoint at id. Re-registering replaces the code.
func (b *Bank) RegisterProgram(ctx context.Context, id chain.Pubkey, entrypoint chain.Entrypoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id == chain.SystemProgramID || id == chain.SysvarRentID {
		return fmt.Errorf("program id %s is reserved", id)
	}
	acct := &accountsdb.Account{
		Lamports:   1,
		Data:       []byte{},
		Owner:      chain.BPFLoaderID,
		Executable: true,
	}
	if err := b.store.Apply(ctx, map[chain.Pubkey]*accountsdb.Account{id: acct}); err != nil {
		return fmt.Errorf("deploy program %s: %w", id, err)
	}
	b.programs[id] = entrypoint
	b.logger.Debug("program registered", "program", id)
	return nil
}

// Airdrop mints lamports into to, creating it as a system account if needed.
func (b *Bank) Airdrop(ctx context.Context, to chain.Pubkey, lamports uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct, ok, err := b.store.Get(ctx, to)
	if err != nil {
		return err
	}
	if !ok {
		acct = accountsdb.Account{Owner: chain.SystemProgramID, Data: []byte{}}
	}
	if acct.Executable {
		return fmt.Errorf("airdrop to executable account %s: %w", to, chain.ErrInvalidArgument)
	}
	if acct.Lamports > math.MaxUint64-lamports {
		return chain.ErrArithmeticOverflow
	}
	acct.Lamports += lamports
	if err := b.store.Apply(ctx, map[chain.Pubkey]*accountsdb.Account{to: &acct}); err != nil {
		return fmt.Errorf("airdrop: %w", err)
	}
	b.metrics.airdropped.Add(float64(lamports))
	b.logger.Info("airdrop", "to", to, "lamports", lamports)
	return nil
}

// Account returns the committed state of key.
func (b *Bank) Account(ctx context.Context, key chain.Pubkey) (accountsdb.Account, bool, error) {
	return b.store.Get(ctx, key)
}

// Balance is the committed balance of key, zero for accounts that do not exist.
func (b *Bank) Balance(ctx context.Context, key chain.Pubkey) (uint64, error) {
	acct, _, err := b.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return acct.Lamports, nil
}

func (b *Bank) Rent() chain.Rent {
	return b.rent
}

func (b *Bank) Ledger() *ledger.Blockchain {
	return b.ledger
}

// LatestBlockhash is the hash of the newest ledger block.
func (b *Bank) LatestBlockhash() string {
	latest, err := b.ledger.GetLatest()
	if err != nil {
		return ""
	}
	return latest.Hash
}
