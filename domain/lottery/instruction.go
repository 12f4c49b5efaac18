package lottery

import (
	"fmt"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// Instruction is the operation requested by a transaction.
type Instruction uint8

const (
	// InitLottery binds the signer as manager of an empty lottery account.
	// Accounts: [signer] initializer, [writable] lottery, [] rent sysvar.
	InitLottery Instruction = iota
	// Play buys one seat for the entry fee.
	// Accounts: [signer, writable] player, [] system program, [writable] lottery.
	Play
	// Draw pays out the pot once every seat is taken.
	// Accounts: [signer, writable] manager, [writable] lottery.
	Draw
)

func (i Instruction) String() string {
	switch i {
	case InitLottery:
		return "InitLottery"
	case Play:
		return "Play"
	case Draw:
		return "Draw"
	default:
		return fmt.Sprintf("Instruction(%d)", uint8(i))
	}
}

// UnpackInstruction reads the tag byte. Anything after it is ignored.
func UnpackInstruction(input []byte) (Instruction, error) {
	if len(input) == 0 {
		return 0, ErrInvalidInstruction
	}
	switch tag := Instruction(input[0]); tag {
	case InitLottery, Play, Draw:
		return tag, nil
	default:
		return 0, ErrInvalidInstruction
	}
}

// Pack is the wire form of the instruction.
func (i Instruction) Pack() []byte {
	return []byte{byte(i)}
}

// NewInitLotteryInstruction builds an InitLottery call for a lottery account
// that already holds LotteryLen bytes owned by programID.
func NewInitLotteryInstruction(programID, initializer, lottery chain.Pubkey) chain.Instruction {
	return chain.Instruction{
		ProgramID: programID,
		Accounts: []chain.AccountMeta{
			chain.NewAccountMeta(initializer, true, false),
			chain.NewAccountMeta(lottery, false, true),
			chain.NewAccountMeta(chain.SysvarRentID, false, false),
		},
		Data: InitLottery.Pack(),
	}
}

func NewPlayInstruction(programID, player, lottery chain.Pubkey) chain.Instruction {
	return chain.Instruction{
		ProgramID: programID,
		Accounts: []chain.AccountMeta{
			chain.NewAccountMeta(player, true, true),
			chain.NewAccountMeta(chain.SystemProgramID, false, false),
			chain.NewAccountMeta(lottery, false, true),
		},
		Data: Play.Pack(),
	}
}

func NewDrawInstruction(programID, manager, lottery chain.Pubkey) chain.Instruction {
	return chain.Instruction{
		ProgramID: programID,
		Accounts: []chain.AccountMeta{
			chain.NewAccountMeta(manager, true, true),
			chain.NewAccountMeta(lottery, false, true),
		},
		Data: Draw.Pack(),
	}
}
