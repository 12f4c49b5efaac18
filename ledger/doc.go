// Package ledger records every transaction a bank processes in an
// append-only chain of blocks.
//
// Each block stores the transaction signature, the programs it called, its
// outcome and the program logs, together with the hash of the previous block.
// Changing any recorded block breaks the chain, which Verify detects.
//
// The chain is an audit log: account state lives in accountsdb and is not
// rebuilt from blocks.
package ledger
