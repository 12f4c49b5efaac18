package ledger

import "github.com/luca-patrignani/mental-lottery/chain"

type Status string

const (
	StatusGenesis Status = "genesis"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
)

// Entry is the outcome of a transaction as recorded in a block.
type Entry struct {
	Signature    string              `json:"signature,omitempty"`
	FeePayer     chain.Pubkey        `json:"fee_payer"`
	Instructions []InstructionRecord `json:"instructions,omitempty"`
	Status       Status              `json:"status"`
	Error        string              `json:"error,omitempty"`
	ErrorCode    uint64              `json:"error_code,omitempty"`
	Logs         []string            `json:"logs,omitempty"`
}

// InstructionRecord names the program that ran and the first data byte it got.
type InstructionRecord struct {
	ProgramID chain.Pubkey `json:"program_id"`
	Tag       int          `json:"tag"`
}
