package chain

import (
	"encoding/binary"
	"fmt"
)

// SystemInstructionType is the u32 discriminant of a system program instruction.
type SystemInstructionType uint32

const (
	SystemCreateAccount SystemInstructionType = 0
	SystemTransfer      SystemInstructionType = 2
)

// SystemInstruction is a decoded system program instruction. Fields that the
// instruction type does not use are zero.
type SystemInstruction struct {
	Type     SystemInstructionType
	Lamports uint64
	Space    uint64
	Owner    Pubkey
}

// Transfer moves lamports from a system-owned signer to any account.
func Transfer(from, to Pubkey, lamports uint64) Instruction {
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], uint32(SystemTransfer))
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			NewAccountMeta(from, true, true),
			NewAccountMeta(to, false, true),
		},
		Data: data,
	}
}

// CreateAccount funds a fresh account with space zeroed bytes and assigns it to owner.
func CreateAccount(from, to Pubkey, lamports, space uint64, owner Pubkey) Instruction {
	data := make([]byte, 4+8+8+PubkeySize)
	binary.LittleEndian.PutUint32(data[0:4], uint32(SystemCreateAccount))
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:], owner[:])
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			NewAccountMeta(from, true, true),
			NewAccountMeta(to, true, true),
		},
		Data: data,
	}
}

func DecodeSystemInstruction(data []byte) (SystemInstruction, error) {
	if len(data) < 4 {
		return SystemInstruction{}, ErrInvalidInstructionData
	}
	ix := SystemInstruction{Type: SystemInstructionType(binary.LittleEndian.Uint32(data[0:4]))}
	switch ix.Type {
	case SystemTransfer:
		if len(data) < 12 {
			return SystemInstruction{}, ErrInvalidInstructionData
		}
		ix.Lamports = binary.LittleEndian.Uint64(data[4:12])
	case SystemCreateAccount:
		if len(data) < 20+PubkeySize {
			return SystemInstruction{}, ErrInvalidInstructionData
		}
		ix.Lamports = binary.LittleEndian.Uint64(data[4:12])
		ix.Space = binary.LittleEndian.Uint64(data[12:20])
		copy(ix.Owner[:], data[20:20+PubkeySize])
	default:
		return SystemInstruction{}, fmt.Errorf("%w: unsupported system instruction %d", ErrInvalidInstructionData, ix.Type)
	}
	return ix, nil
}
