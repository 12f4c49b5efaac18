package chain

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58/base58"
	"go.dedis.ch/kyber/v4/suites"
)

// PubkeySize is the length in bytes of an account address.
const PubkeySize = 32

const (
	// MaxSeeds is the maximum number of seeds in a program address derivation.
	MaxSeeds = 16
	// MaxSeedLen is the maximum length in bytes of a single seed.
	MaxSeedLen = 32

	pdaMarker = "ProgramDerivedAddress"
)

var suite suites.Suite = suites.MustFind("Ed25519")

// Pubkey is a 32-byte public identity of an account, a signer or a program.
type Pubkey [PubkeySize]byte

var (
	SystemProgramID = Pubkey{}
	NativeLoaderID  = MustParsePubkey("NativeLoader1111111111111111111111111111111")
	BPFLoaderID     = MustParsePubkey("BPFLoader2111111111111111111111111111111111")
	SysvarOwnerID   = MustParsePubkey("Sysvar1111111111111111111111111111111111111")
	SysvarRentID    = MustParsePubkey("SysvarRent111111111111111111111111111111111")
)

// PubkeyFromBytes copies b into a Pubkey. b must be exactly PubkeySize long.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var p Pubkey
	if len(b) != PubkeySize {
		return p, fmt.Errorf("invalid pubkey length: expected %d, got %d", PubkeySize, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// PubkeyFromPublicKey converts an Ed25519 public key into an address.
func PubkeyFromPublicKey(pub ed25519.PublicKey) Pubkey {
	var p Pubkey
	copy(p[:], pub)
	return p
}

// ParsePubkey decodes the base58 text form of an address.
func ParsePubkey(s string) (Pubkey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("invalid base58 pubkey %q: %w", s, err)
	}
	return PubkeyFromBytes(b)
}

// MustParsePubkey is like ParsePubkey but panics on error.
func MustParsePubkey(s string) Pubkey {
	p, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Bytes() []byte {
	b := make([]byte, PubkeySize)
	copy(b, p[:])
	return b
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IsOnCurve reports whether p decodes to a point of the Ed25519 curve, i.e.
// whether a private key could exist for it.
func (p Pubkey) IsOnCurve() bool {
	return suite.Point().UnmarshalBinary(p[:]) == nil
}

// CreateProgramAddress derives an address owned by programID that has no
// private key. It fails with ErrInvalidSeeds when the hash lands on the curve.
func CreateProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return Pubkey{}, ErrMaxSeedLengthExceeded
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return Pubkey{}, ErrMaxSeedLengthExceeded
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr Pubkey
	copy(addr[:], h.Sum(nil))
	if addr.IsOnCurve() {
		return Pubkey{}, ErrInvalidSeeds
	}
	return addr, nil
}

// FindProgramAddress searches bump seeds from 255 down to 0 and returns the
// first valid program address together with its bump.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if err != ErrInvalidSeeds {
			return Pubkey{}, 0, err
		}
	}
	return Pubkey{}, 0, fmt.Errorf("unable to find a viable program address bump seed")
}

// ComparePubkeys orders addresses bytewise.
func ComparePubkeys(a, b Pubkey) int {
	return bytes.Compare(a[:], b[:])
}
