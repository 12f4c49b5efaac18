// Package runtime is an in-process ledger host for on-chain programs.
//
// A Bank keeps accounts in an accountsdb.Store and runs signed transactions
// against them. Each instruction of a transaction runs on working copies of
// its accounts; programs may call other programs, including the builtin
// system program, through the chain.InvokeContext they are handed. After
// every invocation the bank checks what the program did to its accounts.
// When all instructions succeed the changes are committed together and
// accounts left with zero lamports are deleted; when one fails nothing is
// written. Either way the outcome is appended to a ledger.Blockchain.
package runtime
