package lottery

import (
	"math"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// EntryFee is what a player pays for one seat.
const EntryFee = chain.LamportsPerSol

// Process is the program entrypoint. It keeps no state between calls: every
// handler reads the lottery account, checks it, and writes it back last.
func Process(ctx chain.InvokeContext, programID chain.Pubkey, accounts []*chain.AccountInfo, data []byte) error {
	instruction, err := UnpackInstruction(data)
	if err != nil {
		return err
	}
	ctx.Log("Instruction: " + instruction.String())

	switch instruction {
	case InitLottery:
		return processInitLottery(accounts, programID)
	case Play:
		return processPlay(ctx, accounts, programID)
	case Draw:
		return processDraw(accounts, programID)
	default:
		return ErrInvalidInstruction
	}
}

// processInitLottery makes the signer the manager of an empty lottery account.
func processInitLottery(accounts []*chain.AccountInfo, programID chain.Pubkey) error {
	it := chain.NewAccountIter(accounts)

	initializer, err := it.Next()
	if err != nil {
		return err
	}
	if !initializer.IsSigner {
		return chain.ErrMissingRequiredSignature
	}

	lotteryAccount, err := it.Next()
	if err != nil {
		return err
	}
	if lotteryAccount.Owner != programID {
		return chain.ErrIncorrectProgramID
	}

	rentAccount, err := it.Next()
	if err != nil {
		return err
	}
	rent, err := chain.RentFromAccountInfo(rentAccount)
	if err != nil {
		return err
	}
	if !rent.IsExempt(lotteryAccount.Balance(), lotteryAccount.DataLen()) {
		return ErrNotRentExempt
	}

	current, err := UnpackUnchecked(lotteryAccount.Data)
	if err != nil {
		return err
	}
	if current.IsInitialized {
		return chain.ErrAccountAlreadyInitialized
	}

	// Start from a zero record, whatever the previous bytes were.
	info := NewLottery(initializer.Key)
	return info.Pack(lotteryAccount.Data)
}

// processPlay charges the entry fee and seats the player.
func processPlay(ctx chain.InvokeContext, accounts []*chain.AccountInfo, programID chain.Pubkey) error {
	it := chain.NewAccountIter(accounts)

	player, err := it.Next()
	if err != nil {
		return err
	}
	if !player.IsSigner {
		return chain.ErrMissingRequiredSignature
	}

	systemProgram, err := it.Next()
	if err != nil {
		return err
	}

	if player.Balance() < EntryFee {
		return chain.ErrInsufficientFunds
	}

	lotteryAccount, err := it.Next()
	if err != nil {
		return err
	}
	if lotteryAccount.Owner != programID {
		return chain.ErrIncorrectProgramID
	}

	transfer := chain.Transfer(player.Key, lotteryAccount.Key, EntryFee)
	if err := ctx.Invoke(transfer, []*chain.AccountInfo{player, lotteryAccount, systemProgram}); err != nil {
		return err
	}

	info, err := Unpack(lotteryAccount.Data)
	if err != nil {
		return err
	}
	// A full lottery fails here after the transfer; the runtime discards the
	// whole transaction, fee included.
	if err := info.Add(player.Key); err != nil {
		return err
	}
	return info.Pack(lotteryAccount.Data)
}

// processDraw pays the whole pot to the manager and closes the lottery.
func processDraw(accounts []*chain.AccountInfo, programID chain.Pubkey) error {
	it := chain.NewAccountIter(accounts)

	claimant, err := it.Next()
	if err != nil {
		return err
	}
	if !claimant.IsSigner {
		return chain.ErrMissingRequiredSignature
	}

	lotteryAccount, err := it.Next()
	if err != nil {
		return err
	}
	if lotteryAccount.Owner != programID {
		return chain.ErrIncorrectProgramID
	}

	info, err := Unpack(lotteryAccount.Data)
	if err != nil {
		return err
	}
	if !info.Ready() {
		return ErrEntrantsIncomplete
	}
	if claimant.Key != info.Manager {
		return ErrAuthorityMismatch
	}

	// The winner is always the manager.
	winner := claimant
	pot := lotteryAccount.Balance()
	if winner.Balance() > math.MaxUint64-pot {
		return chain.ErrArithmeticOverflow
	}
	winner.SetBalance(winner.Balance() + pot)
	lotteryAccount.SetBalance(0)

	var closed Lottery
	return closed.Pack(lotteryAccount.Data)
}
