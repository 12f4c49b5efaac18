package runtime

import (
	"math"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// MaxPermittedDataLength caps the space CreateAccount may allocate.
const MaxPermittedDataLength = 10 * 1024 * 1024

// System program errors, numbered like the ledger's system program.
var (
	ErrAccountAlreadyInUse        = chain.Custom(0, "an account with the same address already exists")
	ErrResultWithNegativeLamports = chain.Custom(1, "account does not have enough lamports to perform the operation")
	ErrInvalidAccountDataLength   = chain.Custom(3, "cannot allocate account data of this length")
)

func (e *execution) processSystem(infos []*chain.AccountInfo, data []byte) error {
	ix, err := chain.DecodeSystemInstruction(data)
	if err != nil {
		return err
	}
	it := chain.NewAccountIter(infos)
	from, err := it.Next()
	if err != nil {
		return err
	}
	to, err := it.Next()
	if err != nil {
		return err
	}
	if !from.IsSigner {
		return chain.ErrMissingRequiredSignature
	}
	payer := &e.accounts[from.Key].account
	if payer.Owner != chain.SystemProgramID {
		return chain.ErrIncorrectProgramID
	}
	if len(payer.Data) != 0 {
		return chain.ErrInvalidArgument
	}

	switch ix.Type {
	case chain.SystemCreateAccount:
		if !to.IsSigner {
			return chain.ErrMissingRequiredSignature
		}
		target := &e.accounts[to.Key].account
		if target.Lamports != 0 || len(target.Data) != 0 || target.Owner != chain.SystemProgramID {
			return ErrAccountAlreadyInUse
		}
		if ix.Space > MaxPermittedDataLength {
			return ErrInvalidAccountDataLength
		}
		if err := moveLamports(from, to, ix.Lamports); err != nil {
			return err
		}
		target.Data = make([]byte, ix.Space)
		target.Owner = ix.Owner
		return nil

	case chain.SystemTransfer:
		return moveLamports(from, to, ix.Lamports)
	}
	return chain.ErrInvalidInstructionData
}

func moveLamports(from, to *chain.AccountInfo, lamports uint64) error {
	if from.Balance() < lamports {
		return ErrResultWithNegativeLamports
	}
	from.SetBalance(from.Balance() - lamports)
	if to.Balance() > math.MaxUint64-lamports {
		from.SetBalance(from.Balance() + lamports)
		return chain.ErrArithmeticOverflow
	}
	to.SetBalance(to.Balance() + lamports)
	return nil
}
