package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pterm/pterm"

	"github.com/luca-patrignani/mental-lottery/accountsdb"
	"github.com/luca-patrignani/mental-lottery/chain"
	"github.com/luca-patrignani/mental-lottery/config"
	"github.com/luca-patrignani/mental-lottery/domain/lottery"
	"github.com/luca-patrignani/mental-lottery/runtime"
	"github.com/luca-patrignani/mental-lottery/wallet"
)

func TestMain(m *testing.M) {
	pterm.DisableOutput()
	os.Exit(m.Run())
}

func testConfig(t *testing.T, args ...string) config.Config {
	t.Helper()
	cfg, err := config.ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), args)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestPlayRound(t *testing.T) {
	ctx := context.Background()
	a, err := openApp(ctx, testConfig(t, "-db", ":memory:"), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	round, err := playRound(ctx, a)
	if err != nil {
		t.Fatalf("round failed: %v", err)
	}
	rentMin := a.bank.Rent().MinimumBalance(lottery.LotteryLen)
	if round.managerPayout != 3*lottery.EntryFee+rentMin {
		t.Fatalf("unexpected payout %d", round.managerPayout)
	}
	if _, _, err := a.lotteryState(ctx, round.lottery); !errors.Is(err, errNoLottery) {
		t.Fatalf("expected the lottery to be closed, got %v", err)
	}
	for i, p := range round.players[:lottery.MaxParticipants] {
		got, err := a.bank.Balance(ctx, p.Pubkey())
		if err != nil {
			t.Fatal(err)
		}
		if got != 2*chain.LamportsPerSol-lottery.EntryFee {
			t.Fatalf("player %d holds %d", i+1, got)
		}
	}
	latecomer, err := a.bank.Balance(ctx, round.players[lottery.MaxParticipants].Pubkey())
	if err != nil {
		t.Fatal(err)
	}
	if latecomer != 2*chain.LamportsPerSol {
		t.Fatalf("rejected player was charged: %d", latecomer)
	}
	n, err := testutil.GatherAndCount(a.registry, "lottery_bank_transactions_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected ok and failed series, got %d", n)
	}
	table, err := metricsTable(a.registry)
	if err != nil || table == "" {
		t.Fatalf("metrics table: %q, %v", table, err)
	}
}

func TestRunKeygenAirdropAndReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db := filepath.Join(dir, "ledger.db")
	keyfile := filepath.Join(dir, "manager.json")

	if err := run(ctx, []string{"-db", db, "keygen", keyfile}); err != nil {
		t.Fatalf("keygen: %v", err)
	}
	manager, err := wallet.Load(keyfile)
	if err != nil {
		t.Fatal(err)
	}
	if err := run(ctx, []string{"-db", db, "airdrop", keyfile, "1.5"}); err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if err := run(ctx, []string{"-db", db, "init", keyfile}); err != nil {
		t.Fatalf("init: %v", err)
	}

	a, err := openApp(ctx, testConfig(t, "-db", db), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	got, err := a.bank.Balance(ctx, manager.Pubkey())
	if err != nil {
		t.Fatal(err)
	}
	want := 1_500_000_000 - a.bank.Rent().MinimumBalance(lottery.LotteryLen)
	if got != want {
		t.Fatalf("expected %d after airdrop and init, got %d", want, got)
	}
}

func TestLotteryStatePersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "-db", filepath.Join(t.TempDir(), "ledger.db"))

	a, err := openApp(ctx, cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	manager, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.airdrop(ctx, manager.Pubkey(), 1); err != nil {
		t.Fatal(err)
	}
	key, _, err := a.openLottery(ctx, manager)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := openApp(ctx, cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	state, pot, err := b.lotteryState(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !state.IsInitialized || state.Manager != manager.Pubkey() || pot != b.bank.Rent().MinimumBalance(lottery.LotteryLen) {
		t.Fatalf("unexpected state %+v pot %d", state, pot)
	}
}

func TestGenesisFundsAccounts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := chain.Pubkey{0x21, 0x42}
	genesis := filepath.Join(dir, "genesis.yaml")
	body := "accounts:\n  - pubkey: " + key.String() + "\n    sol: 3\n"
	if err := os.WriteFile(genesis, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	a, err := openApp(ctx, testConfig(t, "-db", ":memory:", "-genesis", genesis), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	got, err := a.bank.Balance(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3*chain.LamportsPerSol {
		t.Fatalf("expected 3 SOL from genesis, got %d", got)
	}
}

func TestRunUsage(t *testing.T) {
	ctx := context.Background()
	if err := run(ctx, []string{"-db", ":memory:"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := run(ctx, []string{"-db", ":memory:", "fly"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error for unknown command, got %v", err)
	}
	if err := run(ctx, []string{"-db", ":memory:", "show"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error for missing argument, got %v", err)
	}
}

func TestResolvePubkey(t *testing.T) {
	kp, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "id.json")
	if err := kp.Save(path); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{KeyDir: dir}
	for _, arg := range []string{kp.Pubkey().String(), path, "id.json"} {
		got, err := resolvePubkey(cfg, arg)
		if err != nil {
			t.Fatalf("%s: %v", arg, err)
		}
		if got != kp.Pubkey() {
			t.Fatalf("%s resolved to %s", arg, got)
		}
	}
	if _, err := resolvePubkey(cfg, "missing.json"); err == nil {
		t.Fatal("expected error for a missing keyfile")
	}
}

func TestKeygenWritesIntoKeyDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "keys")
	if err := run(ctx, []string{"-db", ":memory:", "-key-dir", dir, "keygen", "manager.json"}); err != nil {
		t.Fatalf("keygen: %v", err)
	}
	kp, err := wallet.Load(filepath.Join(dir, "manager.json"))
	if err != nil {
		t.Fatalf("keypair not in key dir: %v", err)
	}
	got, err := loadKeypair(config.Config{KeyDir: dir}, "manager.json")
	if err != nil {
		t.Fatal(err)
	}
	if got.Pubkey() != kp.Pubkey() {
		t.Fatalf("loaded %s, wrote %s", got.Pubkey(), kp.Pubkey())
	}
	if err := run(ctx, []string{"-db", ":memory:", "-key-dir", dir, "airdrop", "manager.json", "1"}); err != nil {
		t.Fatalf("airdrop by key name: %v", err)
	}
}

func TestOpenLotteryUnfundedManager(t *testing.T) {
	ctx := context.Background()
	a, err := openApp(ctx, testConfig(t, "-db", ":memory:"), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	manager, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}

	_, receipt, err := a.openLottery(ctx, manager)
	if !errors.Is(err, runtime.ErrResultWithNegativeLamports) {
		t.Fatalf("expected the system program to refuse, got %v", err)
	}
	if receipt.Err == nil {
		t.Fatal("expected a failed receipt")
	}
	// The system program's code 1 is not the lottery's rent error.
	if kind := errorKind(err); kind != lottery.KindUnknown {
		t.Fatalf("expected no lottery kind, got %s", kind)
	}
}

func TestErrorKindOfLotteryFailure(t *testing.T) {
	ctx := context.Background()
	a, err := openApp(ctx, testConfig(t, "-db", ":memory:"), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	manager, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.airdrop(ctx, manager.Pubkey(), 1); err != nil {
		t.Fatal(err)
	}
	key, _, err := a.openLottery(ctx, manager)
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.draw(ctx, manager, key)
	if kind := errorKind(err); kind != lottery.KindEntrantsIncomplete {
		t.Fatalf("expected %s, got %s (%v)", lottery.KindEntrantsIncomplete, kind, err)
	}
}

func TestAccountsListsStoredAccounts(t *testing.T) {
	ctx := context.Background()
	a, err := openApp(ctx, testConfig(t, "-db", ":memory:"), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	key := chain.Pubkey{0x33}
	if _, err := a.airdrop(ctx, key, 2); err != nil {
		t.Fatal(err)
	}

	rows, err := a.accounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for i, r := range rows {
		if i > 0 && chain.ComparePubkeys(rows[i-1].key, r.key) >= 0 {
			t.Fatal("accounts are not in address order")
		}
		if r.key == key {
			found = r.lamports == 2*chain.LamportsPerSol && r.owner == chain.SystemProgramID
		}
	}
	if !found {
		t.Fatalf("airdropped account missing from %+v", rows)
	}
	table, err := accountsTable(rows, a.programID)
	if err != nil || table == "" {
		t.Fatalf("accounts table: %q, %v", table, err)
	}
	if err := run(ctx, []string{"-db", ":memory:", "accounts"}); err != nil {
		t.Fatalf("accounts command: %v", err)
	}
}

func TestLotteryStateRejectsCorruptCursor(t *testing.T) {
	ctx := context.Background()
	a, err := openApp(ctx, testConfig(t, "-db", ":memory:"), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	manager, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.airdrop(ctx, manager.Pubkey(), 1); err != nil {
		t.Fatal(err)
	}
	key, _, err := a.openLottery(ctx, manager)
	if err != nil {
		t.Fatal(err)
	}

	acct, _, err := a.store.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	acct.Data[lottery.LotteryLen-1] = lottery.MaxParticipants + 2
	if err := a.store.Apply(ctx, map[chain.Pubkey]*accountsdb.Account{key: &acct}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.lotteryState(ctx, key); !errors.Is(err, chain.ErrInvalidAccountData) {
		t.Fatalf("expected ErrInvalidAccountData, got %v", err)
	}
	if kind := errorKind(fmt.Errorf("show: %w", chain.ErrInvalidAccountData)); kind != lottery.KindCorruptRecord {
		t.Fatalf("expected %s, got %s", lottery.KindCorruptRecord, kind)
	}
}

func TestPtermLevel(t *testing.T) {
	cases := map[slog.Level]pterm.LogLevel{
		slog.LevelDebug: pterm.LogLevelDebug,
		slog.LevelInfo:  pterm.LogLevelInfo,
		slog.LevelWarn:  pterm.LogLevelWarn,
		slog.LevelError: pterm.LogLevelError,
	}
	for in, want := range cases {
		if got := ptermLevel(in); got != want {
			t.Fatalf("%v: expected %v, got %v", in, want, got)
		}
	}
}

func TestFormatSol(t *testing.T) {
	if got := formatSol(1_500_000_000); got != "1.5 SOL" {
		t.Fatalf("unexpected %q", got)
	}
}
