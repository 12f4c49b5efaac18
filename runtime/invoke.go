package runtime

import (
	"fmt"

	"github.com/luca-patrignani/mental-lottery/chain"
)

// invokeContext is the chain.InvokeContext of one running program.
type invokeContext struct {
	exec  *execution
	frame *frame
	depth int
}

func (c *invokeContext) Log(msg string) {
	c.exec.log("Program log: %s", msg)
}

func (c *invokeContext) Invoke(ix chain.Instruction, accounts []*chain.AccountInfo) error {
	return c.InvokeSigned(ix, accounts, nil)
}

// InvokeSigned runs ix on behalf of the calling program. The callee gets at
// most the privileges the caller holds over each account, plus signatures
// for the caller's program addresses derived from signerSeeds.
func (c *invokeContext) InvokeSigned(ix chain.Instruction, accounts []*chain.AccountInfo, signerSeeds [][][]byte) error {
	derived := make(map[chain.Pubkey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := chain.CreateProgramAddress(seeds, c.frame.programID)
		if err != nil {
			return err
		}
		derived[addr] = true
	}

	passed := make(map[chain.Pubkey]bool, len(accounts))
	for _, info := range accounts {
		if _, ok := c.frame.pre[info.Key]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingAccount, info.Key)
		}
		passed[info.Key] = true
	}
	if !passed[ix.ProgramID] {
		return fmt.Errorf("%w: program %s", ErrMissingAccount, ix.ProgramID)
	}

	callee := make([]*chain.AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		if !passed[meta.Pubkey] {
			return fmt.Errorf("%w: %s", ErrMissingAccount, meta.Pubkey)
		}
		if meta.IsSigner && !c.frame.signer[meta.Pubkey] && !derived[meta.Pubkey] {
			return fmt.Errorf("%w: %s signer", ErrPrivilegeEscalation, meta.Pubkey)
		}
		if meta.IsWritable && !c.frame.writable[meta.Pubkey] {
			return fmt.Errorf("%w: %s writable", ErrPrivilegeEscalation, meta.Pubkey)
		}
		callee[i] = c.exec.accountInfo(meta.Pubkey, meta.IsSigner, meta.IsWritable)
	}

	// The caller answers for its own changes up to here; the callee's are
	// checked against the callee.
	if err := c.frame.verify(c.exec); err != nil {
		return err
	}
	if err := c.exec.invoke(ix.ProgramID, callee, ix.Data, c.depth+1); err != nil {
		return err
	}
	c.frame.refresh(c.exec)

	for _, info := range accounts {
		a := c.exec.accounts[info.Key].account
		info.Data = a.Data
		info.Owner = a.Owner
		info.Executable = a.Executable
	}
	return nil
}
