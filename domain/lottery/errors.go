package lottery

import (
	"errors"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// Custom error codes of the lottery program.
var (
	ErrInvalidInstruction = chain.Custom(0, "invalid instruction")
	ErrNotRentExempt      = chain.Custom(1, "lottery account is not rent exempt")
	ErrLotteryFull        = chain.Custom(2, "lottery already has all its participants")
	ErrEntrantsIncomplete = chain.Custom(3, "lottery is waiting for more participants")
	ErrAuthorityMismatch  = chain.Custom(4, "only the lottery manager can draw")
)

// Kind groups every failure Process can report.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedInstruction
	KindMissingAuthorization
	KindOwnershipMismatch
	KindInsufficientFunding
	KindAlreadyInitialized
	KindNotYetInitialized
	KindCorruptRecord
	KindCapacityExceeded
	KindEntrantsIncomplete
	KindAuthorityMismatch
	KindInsufficientBalance
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindMalformedInstruction: "malformed-instruction",
	KindMissingAuthorization: "missing-authorization",
	KindOwnershipMismatch:    "ownership-mismatch",
	KindInsufficientFunding:  "insufficient-funding",
	KindAlreadyInitialized:   "already-initialized",
	KindNotYetInitialized:    "not-yet-initialized",
	KindCorruptRecord:        "corrupt-record",
	KindCapacityExceeded:     "capacity-exceeded",
	KindEntrantsIncomplete:   "entrants-incomplete",
	KindAuthorityMismatch:    "authority-mismatch",
	KindInsufficientBalance:  "insufficient-balance",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

var kindOf = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidInstruction, KindMalformedInstruction},
	{chain.ErrMissingRequiredSignature, KindMissingAuthorization},
	{chain.ErrIncorrectProgramID, KindOwnershipMismatch},
	{ErrNotRentExempt, KindInsufficientFunding},
	{chain.ErrAccountAlreadyInitialized, KindAlreadyInitialized},
	{chain.ErrUninitializedAccount, KindNotYetInitialized},
	{chain.ErrInvalidAccountData, KindCorruptRecord},
	{ErrLotteryFull, KindCapacityExceeded},
	{ErrEntrantsIncomplete, KindEntrantsIncomplete},
	{ErrAuthorityMismatch, KindAuthorityMismatch},
	{chain.ErrInsufficientFunds, KindInsufficientBalance},
}

// KindFrom classifies err raised by the program raisedBy, with the lottery
// deployed at programID. Custom codes are numbered per program, so a custom
// error of another program has no lottery kind.
func KindFrom(err error, raisedBy, programID chain.Pubkey) Kind {
	var pe *chain.ProgramError
	if raisedBy != programID && errors.As(err, &pe) && pe.IsCustom() {
		return KindUnknown
	}
	return KindOf(err)
}

// KindOf classifies an error returned by Process, possibly wrapped by the runtime.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kindOf {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
