package config

import (
	"context"
	"flag"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luca-patrignani/mental-lottery/accountsdb"
	"github.com/luca-patrignani/mental-lottery/chain"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DB != "lottery.db" || cfg.LogLevel != "info" || cfg.KeyDir != ".lottery" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	id, err := cfg.Program()
	if err != nil {
		t.Fatal(err)
	}
	if id.String() != DefaultProgramID {
		t.Fatalf("expected default program id, got %s", id)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("LOTTERY_DB", "from-env.db")
	t.Setenv("LOTTERY_LOG_LEVEL", "warn")

	cfg, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-db", "from-flag.db", "show"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DB != "from-flag.db" {
		t.Fatalf("expected flag to win, got %s", cfg.DB)
	}
	level, err := cfg.Level()
	if err != nil {
		t.Fatal(err)
	}
	if level != slog.LevelWarn {
		t.Fatalf("expected warn level from env, got %v", level)
	}
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	t.Setenv("LOTTERY_PROGRAM_ID", "not-base58-0OIl")
	if _, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), nil); err == nil {
		t.Fatal("expected error for bad program id")
	}

	t.Setenv("LOTTERY_PROGRAM_ID", DefaultProgramID)
	_, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-log-level", "loud"})
	if err == nil || !strings.Contains(err.Error(), "log level") {
		t.Fatalf("expected log level error, got %v", err)
	}
}

func TestInMemory(t *testing.T) {
	if !(Config{DB: ":memory:"}).InMemory() || (Config{DB: "x.db"}).InMemory() {
		t.Fatal("unexpected InMemory result")
	}
}

const genesisYAML = `
rent:
  lamports_per_byte_year: 10
  exemption_threshold: 1
  burn_percent: 0
accounts:
  - pubkey: GGXh6VWiPKA7Df3nzvFcRtvcPjRZxpaQqPEQTjAcBPda
    sol: 2
  - pubkey: SysvarRent111111111111111111111111111111111
    lamports: 5
`

func TestParseGenesis(t *testing.T) {
	g, err := ParseGenesis([]byte(genesisYAML))
	if err != nil {
		t.Fatal(err)
	}
	rent := g.RentOrDefault()
	if rent.LamportsPerByteYear != 10 || rent.ExemptionThreshold != 1 || rent.BurnPercent != 0 {
		t.Fatalf("unexpected rent %+v", rent)
	}
	if len(g.Accounts) != 2 || g.Accounts[0].Sol != 2 || g.Accounts[1].Lamports != 5 {
		t.Fatalf("unexpected accounts %+v", g.Accounts)
	}
}

func TestParseGenesisRejectsBadPubkey(t *testing.T) {
	if _, err := ParseGenesis([]byte("accounts:\n  - pubkey: nope\n    lamports: 1\n")); err == nil {
		t.Fatal("expected error for bad pubkey")
	}
}

func TestGenesisDefaultRent(t *testing.T) {
	var g Genesis
	if g.RentOrDefault() != chain.DefaultRent() {
		t.Fatal("expected default rent")
	}
}

// fakeFunder records airdrops into an in-memory store.
type fakeFunder struct {
	store *accountsdb.MemStore
}

func (f fakeFunder) Account(ctx context.Context, key chain.Pubkey) (accountsdb.Account, bool, error) {
	return f.store.Get(ctx, key)
}

func (f fakeFunder) Airdrop(ctx context.Context, to chain.Pubkey, lamports uint64) error {
	acct, _, err := f.store.Get(ctx, to)
	if err != nil {
		return err
	}
	acct.Lamports += lamports
	return f.store.Apply(ctx, map[chain.Pubkey]*accountsdb.Account{to: &acct})
}

func TestGenesisApplyIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	g := Genesis{Accounts: []GenesisAccount{{Pubkey: DefaultProgramID, Sol: 1.5}}}
	if err := os.WriteFile(path, []byte("accounts:\n  - pubkey: "+DefaultProgramID+"\n    sol: 1.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadGenesis(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Accounts) != 1 || loaded.Accounts[0] != g.Accounts[0] {
		t.Fatalf("unexpected genesis %+v", loaded)
	}

	ctx := context.Background()
	bank := fakeFunder{store: accountsdb.NewMemStore()}
	for i := 0; i < 2; i++ {
		if _, err := loaded.Apply(ctx, bank); err != nil {
			t.Fatal(err)
		}
	}
	key := chain.MustParsePubkey(DefaultProgramID)
	acct, ok, err := bank.Account(ctx, key)
	if err != nil || !ok {
		t.Fatalf("account missing: %v", err)
	}
	if acct.Lamports != 1_500_000_000 {
		t.Fatalf("expected 1.5 SOL once, got %d", acct.Lamports)
	}
}

func TestLoadGenesisMissingFile(t *testing.T) {
	if _, err := LoadGenesis(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestGenesisRejectsOutOfRangeFunding(t *testing.T) {
	if _, err := ParseGenesis([]byte("accounts:\n  - pubkey: " + DefaultProgramID + "\n    sol: 1.0e+30\n")); err == nil {
		t.Fatal("expected error for a huge sol amount")
	}
	if _, err := ParseGenesis([]byte("accounts:\n  - pubkey: " + DefaultProgramID + "\n    sol: -1\n")); err == nil {
		t.Fatal("expected error for negative sol")
	}

	ctx := context.Background()
	bank := fakeFunder{store: accountsdb.NewMemStore()}
	overflow := Genesis{Accounts: []GenesisAccount{{Pubkey: DefaultProgramID, Lamports: math.MaxUint64, Sol: 1}}}
	if n, err := overflow.Apply(ctx, bank); err == nil || n != 0 {
		t.Fatalf("expected overflow error and nothing funded, got %d, %v", n, err)
	}
	if _, ok, _ := bank.Account(ctx, chain.MustParsePubkey(DefaultProgramID)); ok {
		t.Fatal("overflowing genesis funded the account")
	}
}

func TestKeyPath(t *testing.T) {
	cfg := Config{KeyDir: "keys"}
	cases := []struct{ in, want string }{
		{"id.json", filepath.Join("keys", "id.json")},
		{filepath.Join("other", "id.json"), filepath.Join("other", "id.json")},
		{filepath.Join("/", "abs", "k.json"), filepath.Join("/", "abs", "k.json")},
	}
	for _, c := range cases {
		if got := cfg.KeyPath(c.in); got != c.want {
			t.Fatalf("%s: expected %s, got %s", c.in, c.want, got)
		}
	}
	if got := (Config{}).KeyPath("id.json"); got != "id.json" {
		t.Fatalf("empty key dir: got %s", got)
	}
}

func TestParseConfigKeyDirFromEnv(t *testing.T) {
	t.Setenv("LOTTERY_KEY_DIR", "from-env")
	cfg, err := ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.KeyPath("id.json") != filepath.Join("from-env", "id.json") {
		t.Fatalf("unexpected key path %s", cfg.KeyPath("id.json"))
	}
}
