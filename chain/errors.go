package chain

import "fmt"

// ProgramError is the error type returned by programs to the runtime. Builtin
// errors carry codes in the upper 32 bits; custom program errors carry the
// program's own code in the lower 32 bits.
type ProgramError struct {
	code    uint64
	message string
}

const builtinShift = 32

func builtin(n uint64, message string) *ProgramError {
	return &ProgramError{code: n << builtinShift, message: message}
}

var (
	ErrInvalidArgument           = builtin(2, "invalid argument")
	ErrInvalidInstructionData    = builtin(3, "invalid instruction data")
	ErrInvalidAccountData        = builtin(4, "invalid account data")
	ErrAccountDataTooSmall       = builtin(5, "account data too small")
	ErrInsufficientFunds         = builtin(6, "insufficient funds")
	ErrIncorrectProgramID        = builtin(7, "incorrect program id")
	ErrMissingRequiredSignature  = builtin(8, "missing required signature")
	ErrAccountAlreadyInitialized = builtin(9, "account already initialized")
	ErrUninitializedAccount      = builtin(10, "uninitialized account")
	ErrNotEnoughAccountKeys      = builtin(11, "not enough account keys")
	ErrAccountBorrowFailed       = builtin(12, "account borrow failed")
	ErrMaxSeedLengthExceeded     = builtin(13, "max seed length exceeded")
	ErrInvalidSeeds              = builtin(14, "invalid seeds")
	ErrArithmeticOverflow        = builtin(22, "arithmetic overflow")
)

// Custom builds a program specific error. Code 0 is valid.
func Custom(code uint32, message string) *ProgramError {
	return &ProgramError{code: uint64(code), message: message}
}

func (e *ProgramError) Error() string {
	if e.IsCustom() {
		return fmt.Sprintf("custom program error: 0x%x: %s", e.code, e.message)
	}
	return e.message
}

// Code is the numeric code reported to the transaction submitter.
func (e *ProgramError) Code() uint64 {
	return e.code
}

func (e *ProgramError) IsCustom() bool {
	return e.code < 1<<builtinShift
}

// Is matches any ProgramError with the same code.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	return ok && t.code == e.code
}
