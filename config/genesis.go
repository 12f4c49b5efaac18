package config

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/luca-patrignani/mental-lottery/accountsdb"
	"github.com/luca-patrignani/mental-lottery/chain"
)

// Genesis is the initial state of a fresh ledger.
type Genesis struct {
	Rent     *chain.Rent      `yaml:"rent"`
	Accounts []GenesisAccount `yaml:"accounts"`
}

// GenesisAccount funds one address. Either Lamports or Sol may be set; they add up.
type GenesisAccount struct {
	Pubkey   string  `yaml:"pubkey"`
	Lamports uint64  `yaml:"lamports"`
	Sol      float64 `yaml:"sol"`
}

// Funder is the part of a bank genesis needs.
type Funder interface {
	Account(ctx context.Context, key chain.Pubkey) (accountsdb.Account, bool, error)
	Airdrop(ctx context.Context, to chain.Pubkey, lamports uint64) error
}

// LoadGenesis reads a YAML genesis file.
func LoadGenesis(path string) (Genesis, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("read genesis: %w", err)
	}
	return ParseGenesis(b)
}

func ParseGenesis(b []byte) (Genesis, error) {
	var g Genesis
	if err := yaml.Unmarshal(b, &g); err != nil {
		return Genesis{}, fmt.Errorf("parse genesis: %w", err)
	}
	for i, a := range g.Accounts {
		if _, err := chain.ParsePubkey(a.Pubkey); err != nil {
			return Genesis{}, fmt.Errorf("genesis account %d: %w", i, err)
		}
		if _, err := a.lamports(); err != nil {
			return Genesis{}, fmt.Errorf("genesis account %d: %w", i, err)
		}
	}
	return g, nil
}

// RentOrDefault is the configured rent, or the default rent.
func (g Genesis) RentOrDefault() chain.Rent {
	if g.Rent == nil {
		return chain.DefaultRent()
	}
	return *g.Rent
}

// Apply funds every listed account that does not exist yet, so applying the
// same genesis twice changes nothing. It returns the number of accounts funded.
func (g Genesis) Apply(ctx context.Context, bank Funder) (int, error) {
	funded := 0
	for _, a := range g.Accounts {
		key, err := chain.ParsePubkey(a.Pubkey)
		if err != nil {
			return funded, err
		}
		if _, ok, err := bank.Account(ctx, key); err != nil {
			return funded, err
		} else if ok {
			continue
		}
		lamports, err := a.lamports()
		if err != nil {
			return funded, fmt.Errorf("fund %s: %w", key, err)
		}
		if lamports == 0 {
			continue
		}
		if err := bank.Airdrop(ctx, key, lamports); err != nil {
			return funded, fmt.Errorf("fund %s: %w", key, err)
		}
		funded++
	}
	return funded, nil
}

// lamports is the total funding of a, Lamports plus Sol.
func (a GenesisAccount) lamports() (uint64, error) {
	sol := a.Sol * float64(chain.LamportsPerSol)
	if a.Sol < 0 || math.IsNaN(a.Sol) || sol > math.MaxInt64 {
		return 0, fmt.Errorf("sol %v out of range", a.Sol)
	}
	total, carry := bits.Add64(a.Lamports, uint64(sol), 0)
	if carry != 0 {
		return 0, fmt.Errorf("%d lamports plus %v sol overflows", a.Lamports, a.Sol)
	}
	return total, nil
}
