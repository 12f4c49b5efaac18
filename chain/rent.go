package chain

import (
	"encoding/binary"
	"math"
)

const (
	// AccountStorageOverhead is the per-account byte overhead charged on top of
	// the data length.
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear uint64  = 3480
	DefaultExemptionThreshold  float64 = 2.0
	DefaultBurnPercent         uint8   = 50

	// RentSysvarLen is the encoded size of the rent sysvar.
	RentSysvarLen = 8 + 8 + 1
)

// Rent holds the parameters deciding whether an account balance is high
// enough to persist indefinitely.
type Rent struct {
	LamportsPerByteYear uint64  `yaml:"lamports_per_byte_year"`
	ExemptionThreshold  float64 `yaml:"exemption_threshold"`
	BurnPercent         uint8   `yaml:"burn_percent"`
}

func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// MinimumBalance returns the balance an account with dataLen bytes needs to be
// rent exempt.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytes := uint64(AccountStorageOverhead + dataLen)
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

// Encode serializes the sysvar as little-endian u64, f64, u8.
func (r Rent) Encode() []byte {
	b := make([]byte, RentSysvarLen)
	binary.LittleEndian.PutUint64(b[0:8], r.LamportsPerByteYear)
	binary.LittleEndian.PutUint64(b[8:16], math.Float64bits(r.ExemptionThreshold))
	b[16] = r.BurnPercent
	return b
}

func DecodeRent(b []byte) (Rent, error) {
	if len(b) < RentSysvarLen {
		return Rent{}, ErrInvalidAccountData
	}
	return Rent{
		LamportsPerByteYear: binary.LittleEndian.Uint64(b[0:8]),
		ExemptionThreshold:  math.Float64frombits(binary.LittleEndian.Uint64(b[8:16])),
		BurnPercent:         b[16],
	}, nil
}

// RentFromAccountInfo reads the rent sysvar from the account a program was
// given, rejecting any account that is not the sysvar.
func RentFromAccountInfo(a *AccountInfo) (Rent, error) {
	if a.Key != SysvarRentID {
		return Rent{}, ErrInvalidArgument
	}
	return DecodeRent(a.Data)
}
