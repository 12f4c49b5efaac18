package chain

// InvokeContext is what the runtime exposes to a running program.
type InvokeContext interface {
	// Invoke calls another program with a subset of the caller's accounts.
	// Signer privileges are only those the caller already holds.
	Invoke(ix Instruction, accounts []*AccountInfo) error

	// InvokeSigned is like Invoke but additionally signs for every program
	// address derived from the calling program id and one of signerSeeds.
	InvokeSigned(ix Instruction, accounts []*AccountInfo, signerSeeds [][][]byte) error

	// Log appends a line to the transaction's program log.
	Log(msg string)
}

// Entrypoint is the single function through which the runtime calls a program.
type Entrypoint func(ctx InvokeContext, programID Pubkey, accounts []*AccountInfo, data []byte) error
