package runtime

import (
	"errors"
	"fmt"

	"github.com/luca-patrignani/mental-lottery/chain"
)

var (
	ErrSignatureMissing     = errors.New("missing required signature")
	ErrSignatureInvalid     = errors.New("invalid signature")
	ErrAlreadyProcessed     = errors.New("transaction already processed")
	ErrNoInstructions       = errors.New("transaction has no instructions")
	ErrUnknownProgram       = errors.New("program is not registered")
	ErrProgramNotExecutable = errors.New("program account is not executable")
	ErrPrivilegeEscalation  = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrCallDepth            = errors.New("cross-program invocation call depth too deep")
	ErrMissingAccount       = errors.New("invoked instruction references an account the caller did not pass")

	ErrUnbalancedInstruction = errors.New("sum of account balances before and after instruction do not match")
	ErrExternalLamportSpend  = errors.New("instruction spent from the balance of an account it does not own")
	ErrReadonlyLamportChange = errors.New("instruction changed the balance of a read-only account")
	ErrExternalDataModified  = errors.New("instruction modified data of an account it does not own")
	ErrReadonlyDataModified  = errors.New("instruction modified data of a read-only account")
	ErrModifiedProgramID     = errors.New("instruction illegally modified the program id of an account")
	ErrExecutableModified    = errors.New("instruction changed an executable account")
)

// InstructionError reports which instruction of a transaction failed.
// ProgramID is the program that raised Err, which is not the instruction's
// own program when the failure happened in a cross-program invocation.
// Custom error codes only mean something together with it.
type InstructionError struct {
	Index     int
	ProgramID chain.Pubkey
	Err       error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("instruction %d failed: %v", e.Index, e.Err)
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}

// raisedError marks the innermost program an error came out of.
type raisedError struct {
	programID chain.Pubkey
	err       error
}

func (e *raisedError) Error() string {
	return e.err.Error()
}

func (e *raisedError) Unwrap() error {
	return e.err
}

func newInstructionError(index int, ix chain.Instruction, err error) *InstructionError {
	ie := &InstructionError{Index: index, ProgramID: ix.ProgramID, Err: err}
	var raised *raisedError
	if errors.As(err, &raised) {
		ie.ProgramID = raised.programID
	}
	return ie
}
