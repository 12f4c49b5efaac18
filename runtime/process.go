package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/luca-patrignani/mental-lottery/accountsdb"
	"github.com/luca-patrignani/mental-lottery/chain"
	"github.com/luca-patrignani/mental-lottery/ledger"
)

// MaxInvokeDepth bounds the instruction stack, the top-level instruction included.
const MaxInvokeDepth = 5

// Receipt is the outcome of a processed transaction.
type Receipt struct {
	Signature string
	Logs      []string
	// Err is the execution error, nil when the transaction committed.
	Err   error
	Block ledger.Block
}

// loadedAccount is the working copy of one account for the duration of a
// transaction.
type loadedAccount struct {
	account  accountsdb.Account
	original accountsdb.Account
	stored   bool
}

// execution holds the state of a single transaction while it runs.
type execution struct {
	bank     *Bank
	accounts map[chain.Pubkey]*loadedAccount
	signers  map[chain.Pubkey]bool
	writable map[chain.Pubkey]bool
	logs     []string
}

// ProcessTransaction verifies, executes and commits tx. A transaction with
// bad signatures is rejected without touching the ledger. Otherwise the
// outcome is appended to the ledger and the execution error, if any, is both
// returned and set on the receipt.
func (b *Bank) ProcessTransaction(ctx context.Context, tx *Transaction) (Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	defer func() { b.metrics.processingTime.Observe(time.Since(start).Seconds()) }()

	if err := tx.Verify(); err != nil {
		b.metrics.transactions.WithLabelValues("rejected").Inc()
		return Receipt{}, err
	}
	signature := tx.ID()
	if _, ok := b.ledger.FindBySignature(signature); ok {
		b.metrics.transactions.WithLabelValues("rejected").Inc()
		return Receipt{Signature: signature}, ErrAlreadyProcessed
	}

	exec, err := b.load(ctx, tx)
	if err != nil {
		return Receipt{Signature: signature}, fmt.Errorf("load accounts: %w", err)
	}

	var execErr error
	for i, ix := range tx.Message.Instructions {
		if err := exec.processInstruction(ix); err != nil {
			execErr = newInstructionError(i, ix, err)
			break
		}
	}

	if execErr == nil {
		purged, err := b.commit(ctx, exec.accounts)
		if err != nil {
			return Receipt{Signature: signature, Logs: exec.logs}, fmt.Errorf("commit: %w", err)
		}
		b.metrics.purged.Add(float64(purged))
	}

	entry := ledger.Entry{
		Signature: signature,
		FeePayer:  tx.Message.FeePayer,
		Status:    ledger.StatusOK,
		Logs:      exec.logs,
	}
	for _, ix := range tx.Message.Instructions {
		tag := -1
		if len(ix.Data) > 0 {
			tag = int(ix.Data[0])
		}
		entry.Instructions = append(entry.Instructions, ledger.InstructionRecord{ProgramID: ix.ProgramID, Tag: tag})
	}
	if execErr != nil {
		entry.Status = ledger.StatusFailed
		entry.Error = execErr.Error()
		var pe *chain.ProgramError
		if errors.As(execErr, &pe) {
			entry.ErrorCode = pe.Code()
		}
	}
	block, err := b.ledger.Append(entry)
	if err != nil {
		return Receipt{Signature: signature, Logs: exec.logs}, fmt.Errorf("record transaction: %w", err)
	}

	b.metrics.transactions.WithLabelValues(string(entry.Status)).Inc()
	if execErr != nil {
		b.logger.Warn("transaction failed", "signature", signature, "block", block.Index, "error", execErr)
	} else {
		b.logger.Info("transaction committed", "signature", signature, "block", block.Index)
	}

	return Receipt{
		Signature: signature,
		Logs:      exec.logs,
		Err:       execErr,
		Block:     block,
	}, execErr
}

// load reads every account the transaction references into working copies.
func (b *Bank) load(ctx context.Context, tx *Transaction) (*execution, error) {
	exec := &execution{
		bank:     b,
		accounts: make(map[chain.Pubkey]*loadedAccount),
		signers:  make(map[chain.Pubkey]bool),
		writable: map[chain.Pubkey]bool{tx.Message.FeePayer: true},
	}
	for _, s := range tx.Signers() {
		exec.signers[s] = true
	}

	keys := []chain.Pubkey{tx.Message.FeePayer}
	for _, ix := range tx.Message.Instructions {
		keys = append(keys, ix.ProgramID)
		for _, meta := range ix.Accounts {
			keys = append(keys, meta.Pubkey)
			if meta.IsWritable {
				exec.writable[meta.Pubkey] = true
			}
		}
	}

	for _, key := range keys {
		if _, ok := exec.accounts[key]; ok {
			continue
		}
		acct, ok, err := b.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			acct = accountsdb.Account{Owner: chain.SystemProgramID, Data: []byte{}}
		}
		exec.accounts[key] = &loadedAccount{account: acct, original: acct.Clone(), stored: ok}
	}
	return exec, nil
}

// commit writes every changed account in one batch. Accounts left without
// lamports are deleted. It returns the number of deleted accounts.
func (b *Bank) commit(ctx context.Context, accounts map[chain.Pubkey]*loadedAccount) (int, error) {
	updates := make(map[chain.Pubkey]*accountsdb.Account)
	purged := 0
	for key, a := range accounts {
		if a.account.Lamports == 0 {
			if a.stored {
				updates[key] = nil
				purged++
			}
			continue
		}
		if a.stored && a.account.Equal(a.original) {
			continue
		}
		acct := a.account.Clone()
		updates[key] = &acct
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := b.store.Apply(ctx, updates); err != nil {
		return 0, err
	}
	return purged, nil
}

func (e *execution) log(format string, args ...any) {
	e.logs = append(e.logs, fmt.Sprintf(format, args...))
}

// accountInfo returns a view of the working copy of key. Every view of the
// same key shares its balance and data.
func (e *execution) accountInfo(key chain.Pubkey, signer, writable bool) *chain.AccountInfo {
	a := e.accounts[key]
	return &chain.AccountInfo{
		Key:        key,
		IsSigner:   signer,
		IsWritable: writable,
		Lamports:   &a.account.Lamports,
		Data:       a.account.Data,
		Owner:      a.account.Owner,
		Executable: a.account.Executable,
	}
}

func (e *execution) processInstruction(ix chain.Instruction) error {
	infos := make([]*chain.AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		infos[i] = e.accountInfo(meta.Pubkey, e.signers[meta.Pubkey], e.writable[meta.Pubkey])
	}
	return e.invoke(ix.ProgramID, infos, ix.Data, 1)
}

// invoke runs one program at the given stack depth and checks what it did to
// its accounts.
func (e *execution) invoke(programID chain.Pubkey, infos []*chain.AccountInfo, data []byte, depth int) error {
	if depth > MaxInvokeDepth {
		return ErrCallDepth
	}
	program, ok := e.accounts[programID]
	if !ok {
		return ErrMissingAccount
	}
	if !program.account.Executable {
		return ErrProgramNotExecutable
	}

	e.log("Program %s invoke [%d]", programID, depth)
	label := programID.String()
	if programID == chain.SystemProgramID {
		label = "system"
	}
	e.bank.metrics.instructions.WithLabelValues(label).Inc()

	f := e.newFrame(programID, infos)
	var err error
	if programID == chain.SystemProgramID {
		err = e.processSystem(infos, data)
	} else if entrypoint, ok := e.bank.programs[programID]; ok {
		err = entrypoint(&invokeContext{exec: e, frame: f, depth: depth}, programID, infos, data)
	} else {
		err = ErrUnknownProgram
	}
	if err == nil {
		err = f.verify(e)
	}
	if err != nil {
		e.log("Program %s failed: %v", programID, err)
		var raised *raisedError
		if !errors.As(err, &raised) {
			err = &raisedError{programID: programID, err: err}
		}
		return err
	}
	e.log("Program %s success", programID)
	return nil
}

type accountState struct {
	lamports   uint64
	data       []byte
	owner      chain.Pubkey
	executable bool
}

// frame is what one program invocation was given: the state of its accounts
// when it started, and its privileges over them.
type frame struct {
	programID chain.Pubkey
	pre       map[chain.Pubkey]accountState
	signer    map[chain.Pubkey]bool
	writable  map[chain.Pubkey]bool
}

func (e *execution) newFrame(programID chain.Pubkey, infos []*chain.AccountInfo) *frame {
	f := &frame{
		programID: programID,
		pre:       make(map[chain.Pubkey]accountState, len(infos)),
		signer:    make(map[chain.Pubkey]bool, len(infos)),
		writable:  make(map[chain.Pubkey]bool, len(infos)),
	}
	for _, info := range infos {
		f.signer[info.Key] = f.signer[info.Key] || info.IsSigner
		f.writable[info.Key] = f.writable[info.Key] || info.IsWritable
	}
	f.refresh(e)
	return f
}

// refresh takes the current working state as the new baseline.
func (f *frame) refresh(e *execution) {
	for key := range f.writable {
		a := e.accounts[key].account
		f.pre[key] = accountState{
			lamports:   a.Lamports,
			data:       bytes.Clone(a.Data),
			owner:      a.Owner,
			executable: a.Executable,
		}
	}
}

// verify enforces the rules every program is held to on the accounts it was
// given: balances are conserved, only the owner debits or writes data, only
// writable accounts change, executable accounts never change, and ownership
// moves only away from the current owner of a zeroed account.
func (f *frame) verify(e *execution) error {
	var preHi, preLo, postHi, postLo uint64
	for key, pre := range f.pre {
		post := e.accounts[key].account
		writable := f.writable[key]
		owned := pre.owner == f.programID
		dataChanged := !bytes.Equal(pre.data, post.Data)

		if pre.executable {
			if post.Lamports != pre.lamports || dataChanged || post.Owner != pre.owner || !post.Executable {
				return fmt.Errorf("%w: %s", ErrExecutableModified, key)
			}
		}
		if post.Owner != pre.owner && (!writable || !owned || !isZeroed(post.Data)) {
			return fmt.Errorf("%w: %s", ErrModifiedProgramID, key)
		}
		if post.Lamports != pre.lamports && !writable {
			return fmt.Errorf("%w: %s", ErrReadonlyLamportChange, key)
		}
		if post.Lamports < pre.lamports && !owned {
			return fmt.Errorf("%w: %s", ErrExternalLamportSpend, key)
		}
		if dataChanged {
			if !writable {
				return fmt.Errorf("%w: %s", ErrReadonlyDataModified, key)
			}
			if !owned {
				return fmt.Errorf("%w: %s", ErrExternalDataModified, key)
			}
		}

		var c uint64
		preLo, c = bits.Add64(preLo, pre.lamports, 0)
		preHi += c
		postLo, c = bits.Add64(postLo, post.Lamports, 0)
		postHi += c
	}
	if preHi != postHi || preLo != postLo {
		return ErrUnbalancedInstruction
	}
	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
