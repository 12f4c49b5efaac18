package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luca-patrignani/mental-lottery/accountsdb"
	"github.com/luca-patrignani/mental-lottery/chain"
	"github.com/luca-patrignani/mental-lottery/config"
	"github.com/luca-patrignani/mental-lottery/domain/lottery"
	"github.com/luca-patrignani/mental-lottery/runtime"
	"github.com/luca-patrignani/mental-lottery/wallet"
)

// app is a bank with the lottery program deployed on it.
type app struct {
	bank      *runtime.Bank
	store     accountsdb.Store
	programID chain.Pubkey
	registry  *prometheus.Registry
	logger    *slog.Logger
}

func openApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	programID, err := cfg.Program()
	if err != nil {
		return nil, err
	}

	genesis := config.Genesis{}
	if cfg.Genesis != "" {
		if genesis, err = config.LoadGenesis(cfg.Genesis); err != nil {
			return nil, err
		}
	}

	var store accountsdb.Store
	if cfg.InMemory() {
		store = accountsdb.NewMemStore()
	} else {
		s, err := accountsdb.OpenSQLite(cfg.DB)
		if err != nil {
			return nil, err
		}
		store = s
	}

	registry := prometheus.NewRegistry()
	bank, err := runtime.NewBank(ctx, store,
		runtime.WithLogger(logger),
		runtime.WithRent(genesis.RentOrDefault()),
		runtime.WithRegisterer(registry),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := bank.RegisterProgram(ctx, programID, lottery.Process); err != nil {
		store.Close()
		return nil, err
	}
	funded, err := genesis.Apply(ctx, bank)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("apply genesis: %w", err)
	}
	if funded > 0 {
		logger.Info("genesis applied", "accounts", funded)
	}

	return &app{
		bank:      bank,
		store:     store,
		programID: programID,
		registry:  registry,
		logger:    logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) send(ctx context.Context, signers []wallet.Keypair, ixs ...chain.Instruction) (runtime.Receipt, error) {
	if len(signers) == 0 {
		return runtime.Receipt{}, errors.New("no fee payer")
	}
	tx := runtime.NewTransaction(signers[0].Pubkey(), a.bank.LatestBlockhash(), ixs...)
	for _, s := range signers {
		if err := tx.Sign(s.Private); err != nil {
			return runtime.Receipt{}, err
		}
	}
	receipt, err := a.bank.ProcessTransaction(ctx, tx)
	if err != nil {
		return receipt, &failure{kind: a.errorKind(err), err: err}
	}
	return receipt, nil
}

// failure is a transaction error with its lottery kind already resolved
// against the program that raised it.
type failure struct {
	kind lottery.Kind
	err  error
}

func (f *failure) Error() string {
	return f.err.Error()
}

func (f *failure) Unwrap() error {
	return f.err
}

func (a *app) errorKind(err error) lottery.Kind {
	var ixErr *runtime.InstructionError
	if errors.As(err, &ixErr) {
		return lottery.KindFrom(err, ixErr.ProgramID, a.programID)
	}
	return lottery.KindOf(err)
}

// errorKind is the lottery kind of an error returned by a command.
func errorKind(err error) lottery.Kind {
	var f *failure
	if errors.As(err, &f) {
		return f.kind
	}
	return lottery.KindOf(err)
}

// airdrop credits sol to key.
func (a *app) airdrop(ctx context.Context, key chain.Pubkey, sol float64) (uint64, error) {
	if sol <= 0 || sol*float64(chain.LamportsPerSol) > math.MaxInt64 {
		return 0, fmt.Errorf("invalid amount %v", sol)
	}
	lamports := uint64(sol * float64(chain.LamportsPerSol))
	if err := a.bank.Airdrop(ctx, key, lamports); err != nil {
		return 0, err
	}
	return lamports, nil
}

// openLottery creates a rent-exempt account under a fresh keypair and
// initializes it with manager as the manager, in one transaction.
func (a *app) openLottery(ctx context.Context, manager wallet.Keypair) (chain.Pubkey, runtime.Receipt, error) {
	region, err := wallet.Generate()
	if err != nil {
		return chain.Pubkey{}, runtime.Receipt{}, err
	}
	rentMin := a.bank.Rent().MinimumBalance(lottery.LotteryLen)
	receipt, err := a.send(ctx, []wallet.Keypair{manager, region},
		chain.CreateAccount(manager.Pubkey(), region.Pubkey(), rentMin, lottery.LotteryLen, a.programID),
		lottery.NewInitLotteryInstruction(a.programID, manager.Pubkey(), region.Pubkey()),
	)
	return region.Pubkey(), receipt, err
}

func (a *app) play(ctx context.Context, player wallet.Keypair, lotteryKey chain.Pubkey) (runtime.Receipt, error) {
	return a.send(ctx, []wallet.Keypair{player}, lottery.NewPlayInstruction(a.programID, player.Pubkey(), lotteryKey))
}

func (a *app) draw(ctx context.Context, claimant wallet.Keypair, lotteryKey chain.Pubkey) (runtime.Receipt, error) {
	return a.send(ctx, []wallet.Keypair{claimant}, lottery.NewDrawInstruction(a.programID, claimant.Pubkey(), lotteryKey))
}

var errNoLottery = errors.New("no lottery at this address")

// lotteryState reads the record and the pot of a lottery account.
func (a *app) lotteryState(ctx context.Context, key chain.Pubkey) (lottery.Lottery, uint64, error) {
	acct, ok, err := a.bank.Account(ctx, key)
	if err != nil {
		return lottery.Lottery{}, 0, err
	}
	if !ok || acct.Owner != a.programID {
		return lottery.Lottery{}, 0, fmt.Errorf("%s: %w", key, errNoLottery)
	}
	state, err := lottery.UnpackUnchecked(acct.Data)
	if err != nil {
		return lottery.Lottery{}, 0, err
	}
	if state.Cursor > lottery.MaxParticipants {
		return lottery.Lottery{}, 0, fmt.Errorf("%s: cursor %d: %w", key, state.Cursor, chain.ErrInvalidAccountData)
	}
	return state, acct.Lamports, nil
}

// accountRow is one stored account as the accounts command lists it.
type accountRow struct {
	key      chain.Pubkey
	lamports uint64
	owner    chain.Pubkey
	dataLen  int
}

// accounts lists every stored account in address order.
func (a *app) accounts(ctx context.Context) ([]accountRow, error) {
	keys, err := a.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]accountRow, 0, len(keys))
	for _, key := range keys {
		acct, ok, err := a.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rows = append(rows, accountRow{key: key, lamports: acct.Lamports, owner: acct.Owner, dataLen: len(acct.Data)})
	}
	return rows, nil
}
