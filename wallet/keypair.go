// Package wallet creates, stores and loads the Ed25519 keypairs that sign
// transactions.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tyler-smith/go-bip39"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// Keypair is a signing identity.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Generate creates a random keypair.
func Generate() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Public: pub, Private: priv}, nil
}

// FromSeed builds the keypair for a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, fmt.Errorf("invalid seed length: expected %d, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return Keypair{Public: priv.Public().(ed25519.PublicKey), Private: priv}, nil
}

// NewMnemonic returns a fresh 12 word recovery phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// FromMnemonic recovers the keypair of a recovery phrase. The first 32 bytes
// of the BIP-39 seed are the Ed25519 seed.
func FromMnemonic(mnemonic, passphrase string) (Keypair, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return Keypair{}, fmt.Errorf("invalid mnemonic: %w", err)
	}
	return FromSeed(seed[:ed25519.SeedSize])
}

func (k Keypair) Pubkey() chain.Pubkey {
	return chain.PubkeyFromPublicKey(k.Public)
}

// MarshalJSON writes the 64-byte private key as a JSON array of numbers, the
// keypair file format of the ledger's command line tools.
func (k Keypair) MarshalJSON() ([]byte, error) {
	nums := make([]int, len(k.Private))
	for i, b := range k.Private {
		nums[i] = int(b)
	}
	return json.Marshal(nums)
}

func (k *Keypair) UnmarshalJSON(data []byte) error {
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	if len(nums) != ed25519.PrivateKeySize {
		return fmt.Errorf("invalid keypair length: expected %d, got %d", ed25519.PrivateKeySize, len(nums))
	}
	priv := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, n := range nums {
		if n < 0 || n > 255 {
			return fmt.Errorf("invalid keypair byte %d at %d", n, i)
		}
		priv[i] = byte(n)
	}
	derived, err := FromSeed(priv.Seed())
	if err != nil {
		return err
	}
	if !derived.Public.Equal(ed25519.PublicKey(priv[ed25519.SeedSize:])) {
		return fmt.Errorf("keypair public half does not match its seed")
	}
	*k = derived
	return nil
}

// Save writes the keypair file with owner-only permissions.
func (k Keypair) Save(path string) error {
	b, err := json.Marshal(k)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create keypair dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write keypair: %w", err)
	}
	return nil
}

// Load reads a keypair file written by Save or by the ledger's own tools.
func Load(path string) (Keypair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("read keypair: %w", err)
	}
	var k Keypair
	if err := json.Unmarshal(b, &k); err != nil {
		return Keypair{}, fmt.Errorf("parse keypair %s: %w", path, err)
	}
	return k, nil
}
