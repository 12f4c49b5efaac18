package chain

// AccountInfo is the view of an account handed to a program for the duration
// of one instruction. Lamports and Data alias the runtime's working copy, so
// writes through them are what the runtime commits.
type AccountInfo struct {
	Key        Pubkey
	IsSigner   bool
	IsWritable bool
	Lamports   *uint64
	Data       []byte
	Owner      Pubkey
	Executable bool
}

func (a *AccountInfo) Balance() uint64 {
	if a.Lamports == nil {
		return 0
	}
	return *a.Lamports
}

func (a *AccountInfo) SetBalance(lamports uint64) {
	*a.Lamports = lamports
}

func (a *AccountInfo) DataLen() int {
	return len(a.Data)
}

// AccountIter hands out the accounts of an instruction in the order the
// caller supplied them.
type AccountIter struct {
	accounts []*AccountInfo
	pos      int
}

func NewAccountIter(accounts []*AccountInfo) *AccountIter {
	return &AccountIter{accounts: accounts}
}

// Next returns the next account or ErrNotEnoughAccountKeys.
func (it *AccountIter) Next() (*AccountInfo, error) {
	if it.pos >= len(it.accounts) {
		return nil, ErrNotEnoughAccountKeys
	}
	a := it.accounts[it.pos]
	it.pos++
	return a, nil
}

// AccountMeta describes how an instruction uses one account.
type AccountMeta struct {
	Pubkey     Pubkey `json:"pubkey" yaml:"pubkey"`
	IsSigner   bool   `json:"is_signer" yaml:"is_signer"`
	IsWritable bool   `json:"is_writable" yaml:"is_writable"`
}

func NewAccountMeta(key Pubkey, signer, writable bool) AccountMeta {
	return AccountMeta{Pubkey: key, IsSigner: signer, IsWritable: writable}
}

// Instruction is a single program call inside a transaction.
type Instruction struct {
	ProgramID Pubkey        `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// LamportsPerSol is the number of base units in one unit of the native currency.
const LamportsPerSol uint64 = 1_000_000_000
